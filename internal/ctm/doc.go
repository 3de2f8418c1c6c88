// Package ctm converts between a scalar colour saturation and the 3×3 colour
// transform matrix (CTM) that display drivers apply to every pixel, and
// encodes that matrix into the wire format the RandR "CTM" output property
// expects.
//
// # Saturation
//
// Saturation is a single float. 1.0 leaves colours untouched, 0.0 produces
// grayscale and values above 1.0 over-saturate. Sane values lie in [0, 4].
//
//	m := ctm.FromSaturation(1.5)
//	fmt.Println(m.Saturation()) // 1.5
//
// # Wire format
//
// DRM expects each coefficient as a signed-magnitude S31.32 fixed-point
// number (bit 63 is the sign, the low 63 bits the magnitude). RandR only
// accepts 32-bit array elements, so each 64-bit value is split into two
// 32-bit words, low word first, giving 18 words per matrix:
//
//	wire := ctm.Encode(m)   // [18]uint32
//	back := ctm.Decode(wire)
//
// The split is done with explicit masks and shifts and never depends on the
// host byte order.
package ctm
