// Package core defines the shared vocabulary of the hgmesh framework: agent
// nodes and their lifecycle states, activity kinds and signatures, and the
// opaque payloads activities exchange with the engine and the sentinel
// monitor. It has no dependencies on the other hgmesh packages so every layer
// (tree, scheduler, engine, sentinel) can share these types without cycles.
package core
