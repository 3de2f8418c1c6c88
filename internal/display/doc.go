// Package display discovers the outputs of a display server and exposes one
// saturation Controller per usable output.
//
// # Backends
//
// Each connected output is driven by exactly one backend, chosen once during
// discovery:
//
//   - BackendVendor: the NVIDIA digital vibrance attribute. Preferred when the
//     output is mapped to an NVIDIA display target.
//   - BackendMatrix: the generic "CTM" output property, written as an encoded
//     colour transform matrix.
//
// Outputs that are disconnected or support neither backend are left out.
//
// # Usage
//
//	inst, err := display.Open("", x11.Dial, display.Options{Logger: log})
//	if err != nil {
//	    return err
//	}
//	defer inst.Close()
//
//	for _, c := range inst.Controllers() {
//	    s, _ := c.Saturation()
//	    fmt.Printf("%s (%s): %.2f\n", c.Name(), c.Backend(), s)
//	}
//
// # Thread Safety
//
// An Instance and its Controllers hold no per-call state of their own, so
// they are as safe for concurrent use as the underlying Session. Calls made
// after Close return ErrClosed.
package display
