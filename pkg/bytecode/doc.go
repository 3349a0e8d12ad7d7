// Package bytecode reads compiled JVM classes and extracts the classes they
// reference.
//
// # Overview
//
// [ParseBytes] decodes the structure of a class file: constant pool, this
// class, superclass, interfaces, fields, methods and attributes. Bytecode
// instructions are never interpreted; every class a method body touches is
// visible through the constant pool anyway.
//
// [Scanner] turns a parsed class into a [ScanResult]: the unit name of the
// class plus one [Reference] per reference site. Sites are classified by
// [Kind]:
//
//   - inheritance: superclass and interfaces
//   - field, method: types in field and method descriptors
//   - throws: declared exceptions
//   - annotation: annotation types, enum and class element values
//   - signature: generic type arguments the erased descriptor hides
//   - member_ref: owners and types of referenced fields and methods
//   - class_ref: remaining class constants (new, casts, instanceof, literals)
//
// References to platform classes (java.*, javax.*, ...) are dropped by the
// scanner. References to third-party libraries are kept here and dropped
// later, when the graph builder knows which units belong to the codebase.
//
// # Concurrency
//
// A [Scanner] is immutable and Scan is a pure function of one artifact, so a
// single scanner can be shared by any number of worker goroutines.
package bytecode
