package display

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/vibrant/internal/ctm"
)

func names(cs []*Controller) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name()
	}
	return out
}

// ─── Discovery ─────────────────────────────────────────────────────

func TestNewDiscoversBackends(t *testing.T) {
	session := newFakeSession(
		Output{ID: 10, Name: "DP-0", Connected: true},
		Output{ID: 11, Name: "DP-1", Connected: false},
		Output{ID: 12, Name: "HDMI-0", Connected: true},
		Output{ID: 13, Name: "eDP-1", Connected: true},
		Output{ID: 14, Name: "VGA-0", Connected: true},
	)
	session.props.withMatrix(12, ctm.Identity()).withMatrix(13, ctm.Identity()).withMatrix(11, ctm.Identity())
	session.vendor = newFakeVendor(map[OutputID]int{10: 3, 13: 4})

	inst, err := New(session, Options{})
	require.NoError(t, err)
	defer inst.Close()

	cs := inst.Controllers()
	assert.Equal(t, []string{"DP-0", "HDMI-0", "eDP-1"}, names(cs))
	assert.Equal(t, BackendVendor, cs[0].Backend())
	assert.Equal(t, BackendMatrix, cs[1].Backend())
	// Vendor wins when both backends are available.
	assert.Equal(t, BackendVendor, cs[2].Backend())

	id, ok := cs[2].VendorDisplayID()
	assert.True(t, ok)
	assert.Equal(t, 4, id)

	_, ok = cs[1].VendorDisplayID()
	assert.False(t, ok)
}

func TestNewWithoutVendorExtension(t *testing.T) {
	session := newFakeSession(
		Output{ID: 1, Name: "DP-1", Connected: true},
		Output{ID: 2, Name: "DP-2", Connected: true},
	)
	session.props.withMatrix(2, ctm.Identity())

	inst, err := New(session, Options{})
	require.NoError(t, err)

	cs := inst.Controllers()
	require.Len(t, cs, 1)
	assert.Equal(t, "DP-2", cs[0].Name())
	assert.Equal(t, OutputID(2), cs[0].OutputID())
	assert.Equal(t, BackendMatrix, cs[0].Backend())
}

func TestNewNoUsableOutputs(t *testing.T) {
	session := newFakeSession(Output{ID: 1, Name: "DP-1", Connected: true})

	inst, err := New(session, Options{})
	require.NoError(t, err)
	assert.Empty(t, inst.Controllers())
}

func TestNewDiscoveryFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *fakeSession)
	}{
		{"outputs", func(s *fakeSession) { s.outputsErr = errBroken }},
		{"vendor map", func(s *fakeSession) {
			s.vendor = newFakeVendor(nil)
			s.vendor.idsErr = errBroken
		}},
		{"property lookup", func(s *fakeSession) { s.props.hasErr = errBroken }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newFakeSession(Output{ID: 1, Name: "DP-1", Connected: true})
			tt.setup(session)

			inst, err := New(session, Options{})
			assert.Nil(t, inst)
			assert.ErrorIs(t, err, ErrDiscoveryFailed)
			assert.ErrorIs(t, err, errBroken)
			assert.Equal(t, 1, session.closeCount(), "session must be closed on failure")
		})
	}
}

func TestNewNilSession(t *testing.T) {
	_, err := New(nil, Options{})
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestControllersReturnsCopy(t *testing.T) {
	session := newFakeSession(Output{ID: 1, Name: "DP-1", Connected: true})
	session.props.withMatrix(1, ctm.Identity())

	inst, err := New(session, Options{})
	require.NoError(t, err)

	cs := inst.Controllers()
	cs[0] = nil
	assert.NotNil(t, inst.Controllers()[0])
}

// ─── Open ──────────────────────────────────────────────────────────

func TestOpenDialFailure(t *testing.T) {
	dial := func(target string) (Session, error) {
		assert.Equal(t, ":1", target)
		return nil, errBroken
	}

	_, err := Open(":1", dial, Options{})
	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.ErrorIs(t, err, errBroken)
}

func TestOpenKeepsConnectionError(t *testing.T) {
	wrapped := errors.Join(ErrConnectionFailed, errBroken)
	dial := func(string) (Session, error) { return nil, wrapped }

	_, err := Open("", dial, Options{})
	assert.Same(t, wrapped, err)
}

func TestOpenSuccess(t *testing.T) {
	session := newFakeSession(Output{ID: 1, Name: "DP-1", Connected: true})
	session.props.withMatrix(1, ctm.Identity())
	dial := func(string) (Session, error) { return session, nil }

	inst, err := Open("", dial, Options{})
	require.NoError(t, err)
	assert.Len(t, inst.Controllers(), 1)
}

// ─── Lookup ────────────────────────────────────────────────────────

func TestControllerByName(t *testing.T) {
	session := newFakeSession(
		Output{ID: 1, Name: "DP-1", Connected: true},
		Output{ID: 2, Name: "HDMI-1", Connected: true},
	)
	session.props.withMatrix(1, ctm.Identity()).withMatrix(2, ctm.Identity())

	inst, err := New(session, Options{})
	require.NoError(t, err)

	c, err := inst.Controller("HDMI-1")
	require.NoError(t, err)
	assert.Equal(t, OutputID(2), c.OutputID())

	_, err = inst.Controller("DVI-0")
	assert.ErrorIs(t, err, ErrNotFound)
}

// ─── Close ─────────────────────────────────────────────────────────

func TestClose(t *testing.T) {
	session := newFakeSession(Output{ID: 1, Name: "DP-1", Connected: true})
	session.props.withMatrix(1, ctm.Identity())

	inst, err := New(session, Options{})
	require.NoError(t, err)
	c := inst.Controllers()[0]

	require.NoError(t, inst.Close())
	require.NoError(t, inst.Close())
	assert.Equal(t, 1, session.closeCount())
	assert.Empty(t, inst.Controllers())

	_, err = c.Saturation()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.SetSaturation(1.0), ErrClosed)
	_, err = inst.Controller("DP-1")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseReportsSessionError(t *testing.T) {
	session := newFakeSession()
	session.closeErr = errBroken

	inst, err := New(session, Options{})
	require.NoError(t, err)

	assert.ErrorIs(t, inst.Close(), errBroken)
	assert.ErrorIs(t, inst.Close(), errBroken)
}

// ─── Backend assignment ────────────────────────────────────────────

func TestAssignOnlyOnce(t *testing.T) {
	c := &Controller{}
	assert.False(t, c.assign(BackendUnknown, 0))
	assert.True(t, c.assign(BackendMatrix, 0))
	assert.False(t, c.assign(BackendVendor, 7))
	assert.Equal(t, BackendMatrix, c.Backend())
}

func TestBackendString(t *testing.T) {
	assert.Equal(t, "ctm", BackendMatrix.String())
	assert.Equal(t, "nvidia", BackendVendor.String())
	assert.Equal(t, "unknown", BackendUnknown.String())

	text, err := BackendVendor.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "nvidia", string(text))
}

func TestValidateSaturation(t *testing.T) {
	for _, s := range []float64{0, 0.5, 1, 4} {
		assert.NoError(t, ValidateSaturation(s), "s=%v", s)
	}
	for _, s := range []float64{-0.01, 4.01, math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, ValidateSaturation(s), ErrRange, "s=%v", s)
	}
}
