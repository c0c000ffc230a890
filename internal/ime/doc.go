// Package ime bridges a session-oriented input engine to a presentation
// surface and to per-application IPC clients.
//
// # Architecture Overview
//
// A client process (one per application using the input method) talks to the
// server through fixed-size wide-character buffers. The Bridge receives each
// request, forwards the semantic action to the Engine and produces two
// outputs: a wire response written back into the client's buffer and a UI
// update pushed to the presentation surface.
//
//	client request ──→ Bridge ──→ Engine
//	                     │
//	                     ├──→ wire.Response ──→ client buffer
//	                     └──→ Context+Status ──→ UI
//
// # Maintenance
//
// The Bridge starts disabled. Initialize probes for a running deployer and,
// when none holds the lock, connects the engine, then loads the UI style and
// per-application options from the "weasel" config namespace. While
// disabled every session operation short-circuits to a neutral value. The
// next AddSession opportunistically calls EndMaintenance to resume service.
//
// # Offsets
//
// Engines report selections as byte offsets into UTF-8 text; clients and
// surfaces count UTF-16 code units. UTF16Offset performs the conversion.
//
// # Concurrency
//
// A Bridge is driven by a single caller. The ipc package runs every call on
// one dispatcher goroutine, so operations are totally ordered and never
// interleave.
package ime
