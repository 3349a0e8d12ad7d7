// Package source locates compiled artifacts for analysis.
//
// An [Artifact] is a handle with a stable name and raw binary content. The
// analysis engine does not care where artifacts come from; this package
// provides the handles the CLI needs:
//
//   - [Dir]: every .class file below a directory (e.g. target/classes)
//   - [Archive]: every .class entry inside a .jar or .zip file
//   - [Bytes]: an in-memory artifact, mostly for tests and embedding
//
// [Discover] accepts a mix of directories, archives and single class files
// and returns the artifacts sorted by name, so that a run over the same
// inputs always submits artifacts in the same order.
package source
