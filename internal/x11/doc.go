// Package x11 implements display.Session on top of an X11 connection.
//
// Outputs and the "CTM" output property are accessed through the RandR
// extension (version 1.3 or later). When the server carries the NV-CONTROL
// extension, digital vibrance is read and written through it as well.
//
// NV-CONTROL has no generated bindings, so its four requests (IsNv,
// QueryAttribute, SetAttribute, QueryBinaryData) are encoded by hand. The
// encoders and reply parsers are pure functions and are tested without a
// server.
package x11
