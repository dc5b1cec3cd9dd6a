// Package repair relocates prebuilt binaries to the local install roots.
//
// Bottles are built with placeholder tokens in their dynamic dependency
// tables in place of the real install prefix and package store. After
// extraction every candidate binary in the keg is inspected; entries
// naming a placeholder are rewritten to the real roots and the binary is
// re-signed with an ad-hoc signature, since any edit invalidates the
// existing one.
//
// Editing is abstracted behind Editor. NativeEditor parses Mach-O and ELF
// files with the standard library and patches strings in place;
// ToolEditor drives otool and install_name_tool. Signing is abstracted
// behind Signer.
//
// Repair is idempotent: a repaired binary holds no placeholders, so a
// second pass performs no writes. Per-file failures are collected in a
// Summary instead of aborting the pass.
package repair
