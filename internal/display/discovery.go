package display

import "fmt"

// discover builds one Controller per usable connected output.
//
// Backend priority per output:
//  1. Vendor, if the output is mapped to a vendor display target
//  2. Matrix, if the output exposes the CTM property
//  3. Otherwise the output is dropped
//
// Controllers keep the server's enumeration order. Any enumeration or
// transport error aborts discovery with ErrDiscoveryFailed.
func (i *Instance) discover() ([]*Controller, error) {
	outputs, err := i.session.Outputs()
	if err != nil {
		return nil, fmt.Errorf("%w: enumerating outputs: %w", ErrDiscoveryFailed, err)
	}

	var vendorIDs map[OutputID]int
	if i.vendor != nil {
		vendorIDs, err = i.vendor.DisplayIDs()
		if err != nil {
			return nil, fmt.Errorf("%w: mapping vendor displays: %w", ErrDiscoveryFailed, err)
		}
	}

	controllers := make([]*Controller, 0, len(outputs))
	for _, out := range outputs {
		if !out.Connected {
			i.logger.Debug("skipping disconnected output", "output", out.Name)
			continue
		}

		c := &Controller{inst: i, output: out}

		if id, ok := vendorIDs[out.ID]; ok {
			c.assign(BackendVendor, id)
		} else if i.props != nil {
			has, err := i.props.HasProperty(out.ID, PropertyCTM)
			if err != nil {
				return nil, fmt.Errorf("%w: probing %s on %s: %w", ErrDiscoveryFailed, PropertyCTM, out.Name, err)
			}
			if has {
				c.assign(BackendMatrix, 0)
			}
		}

		if c.backend == BackendUnknown {
			i.logger.Info("output has no saturation backend", "output", out.Name)
			continue
		}

		i.logger.Debug("output discovered", "output", out.Name, "backend", c.backend.String())
		controllers = append(controllers, c)
	}

	return controllers, nil
}
