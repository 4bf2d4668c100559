// Package aifdocs mirrors dependency documentation into a local directory
// whose shape is a deterministic function of the project's lock state and an
// on-disk configuration. It resolves target versions from the ecosystem
// lockfile (or the registry in latest-docs mode), consults a metadata cache,
// fetches from remote sources with retry and fallback, transforms the content
// under size and provenance rules, and commits versioned package directories
// atomically together with a machine-readable status report.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., github/, registry/, fs/), with the
// orchestration pipeline in engine/.
package aifdocs
