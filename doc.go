// Copyright 2020 Nathan Taylor (nbtaylor@gmail.com)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package privreg implements a process-wide registry mapping a dense integer
// "pid" to an opaque pointer, intended for caching per-locale replicas of
// privatized objects in a distributed runtime. Any goroutine may read an
// entry (very frequently, via Get) or publish a new one (less frequently,
// via Publish); the registry grows on demand to hold arbitrarily large pids
// without ever blocking a concurrent reader.
//
// ## Overview
//
// The registry holds two parallel "instances", numbered 0 and 1. Each
// instance is a vector of fixed-size blocks of pointer slots; at any moment
// exactly one instance is "current", named by an atomic index. Readers
// always consult the current instance; the other instance is scratch space
// for the next growth.
//
// A pid decomposes into a block index and a slot index:
//
//	blockIdx = pid / BlockSize
//	slotIdx  = pid % BlockSize
//
// Reading or clearing a slot never blocks, and allocates only on a
// goroutine's first access (its roster node): the reader
// publishes which instance it is about to examine into a per-goroutine
// status word, rereads the current index to make sure a writer hasn't swapped
// from under it, and only then dereferences the block. Publishing to a slot
// that already exists takes the same read-only path; publishing past the end
// of the current instance upgrades to a write: the writer builds a longer
// instance in the *other* slot, copies over the old instance's block
// references (not their contents — blocks are shared across generations),
// allocates fresh blocks for the new suffix, and atomically swaps the index.
// Only after every reader's status word has moved off the old index does the
// writer drop the old instance's (now orphaned) block-reference vector.
//
// This is deliberately not a textbook RCU or seqlock: there is no epoch
// counter, and the reader never retries a data read after a conflicting
// write; its only loop is the revalidation of its status word before it
// touches any block. A reader's
// status word names a *generation*, and the writer's quiescence wait
// enumerates every goroutine that has ever touched the registry (via an
// intrusive, append-only roster) rather than relying on a global epoch.
//
//	Holder \ instance currently named by currentIdx
//	+-----------------+---------------------+---------------------+
//	| status == -1     | not reading          | not reading          |
//	| status == i      | reading generation i | reading generation i |
//	+-----------------+---------------------+---------------------+
//
// A writer growing instance i may free instance i's old block-reference
// vector only once no roster node's status still equals i.
//
// ## Non-goals
//
// No durability, no cross-process visibility, no ordering between
// publications of distinct pids, no reclamation of cleared entries beyond
// overwriting with nil, no fairness between writers.
package privreg

// BlockSize is the number of pointer slots per block. It is a compile-time
// constant for the package-level singleton; WithBlockSize lets a non-
// singleton Registry override it per instance (see registry.go).
const BlockSize = 1024
