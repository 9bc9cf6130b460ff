// SPDX-License-Identifier: MPL-2.0

// Package acquire is the engine's front door: it turns a version request
// into a usable dotnet installation path, installing when nothing usable
// exists yet.
//
// Acquisition walks a fixed sequence per request: resolve the version
// expression, check the ownership ledger for an existing install, take the
// cross-process lock for the install id, install and validate under the
// lock, register ownership, release. The sequence makes concurrent
// acquisitions of the same install id idempotent across processes: exactly
// one caller installs, everyone gets the same path.
//
// The Engine composes the other internal packages behind one facade;
// nothing in here renders output or reads ambient globals.
package acquire
