// Package mediastore implements the detection-media storage pipeline for the
// monitoring backend: validation of uploaded capture files, organized
// date/device storage layout, deterministic hash-qualified naming, thumbnail
// and clip derivation through an external toolchain, quarantine-based soft
// deletion, and an append-only audit trail.
//
// The package is organized around a small set of composable components.
// StorageLayout fixes the on-disk tree and policy limits at startup. Namer
// derives directories and collision-resistant filenames. FileValidator
// enforces size/extension/content policy. Coordinator drives
// validate -> locate -> process -> persist for a single artifact and always
// returns a structured StorageResult. The Service facade built by New
// orchestrates whole ingestions, persistence-layer URL updates, permission
// checks, quarantine and auditing.
//
// Construct a Service with functional options:
//
//	svc, err := mediastore.New(
//	    mediastore.WithLayout(layout),
//	    mediastore.WithRepository(repo),
//	    mediastore.WithIdentity(idp),
//	)
package mediastore
