package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/famomatic/bvdl/internal/types"
)

// Decoder turns an inline script into the JSON assigned to marker.
type Decoder interface {
	Decode(script, marker string) ([]byte, error)
}

// Mode selects a Decoder implementation.
type Mode string

const (
	// ModeScan delimits the object with the brace scanner.
	ModeScan Mode = "scan"
	// ModeScript evaluates the script in an embedded JS runtime.
	ModeScript Mode = "script"
	// ModeAuto scans first and evaluates the script when scanning reports malformed state.
	ModeAuto Mode = "auto"
)

// ParseMode validates a configured decoder mode. Empty means ModeScan.
func ParseMode(raw string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return ModeScan, nil
	case ModeScan, ModeScript, ModeAuto:
		return m, nil
	default:
		return "", fmt.Errorf("unknown state decoder %q", raw)
	}
}

// NewDecoder returns the decoder for mode.
func NewDecoder(mode Mode) Decoder {
	switch mode {
	case ModeScript:
		return ScriptDecoder{}
	case ModeAuto:
		return fallbackDecoder{primary: ScanDecoder{}, fallback: ScriptDecoder{}}
	default:
		return ScanDecoder{}
	}
}

// ScanDecoder uses Extract.
type ScanDecoder struct{}

func (ScanDecoder) Decode(script, marker string) ([]byte, error) {
	raw, err := Extract(script, marker)
	if err != nil {
		return nil, err
	}
	return []byte(raw), nil
}

type fallbackDecoder struct {
	primary  Decoder
	fallback Decoder
}

func (d fallbackDecoder) Decode(script, marker string) ([]byte, error) {
	out, err := d.primary.Decode(script, marker)
	if err == nil || !errors.Is(err, types.ErrMalformedState) {
		return out, err
	}
	if alt, altErr := d.fallback.Decode(script, marker); altErr == nil {
		return alt, nil
	}
	return nil, err
}

const defaultScriptTimeout = 2 * time.Second

// ScriptDecoder runs the inline script against a minimal browser global
// object and serializes whatever it assigned to the marker.
type ScriptDecoder struct {
	// Timeout interrupts scripts that never finish. Zero means two seconds.
	Timeout time.Duration
}

func (d ScriptDecoder) Decode(script, marker string) ([]byte, error) {
	if !strings.Contains(script, marker) {
		return nil, &types.StateMarkerNotFoundError{Marker: marker}
	}
	name := strings.TrimPrefix(marker, "window.")

	vm := goja.New()
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultScriptTimeout
	}
	timer := time.AfterFunc(timeout, func() { vm.Interrupt("state script timeout") })
	defer timer.Stop()

	if _, err := vm.RunString(preludeJS); err != nil {
		return nil, &types.MalformedStateError{Marker: marker, Reason: "prelude failed", Err: err}
	}
	// Trailing bootstrap code may throw once the assignment has happened.
	_, runErr := vm.RunString(script)
	timer.Stop()
	vm.ClearInterrupt()

	window := vm.Get("window")
	if window == nil || goja.IsUndefined(window) || goja.IsNull(window) {
		return nil, &types.MalformedStateError{Marker: marker, Reason: "window object missing"}
	}
	val := window.ToObject(vm).Get(name)
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		if runErr != nil {
			return nil, &types.MalformedStateError{Marker: marker, Reason: "script evaluation failed", Err: runErr}
		}
		return nil, &types.MalformedStateError{Marker: marker, Reason: "marker was not assigned"}
	}

	stringify, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("stringify"))
	if !ok {
		return nil, &types.MalformedStateError{Marker: marker, Reason: "JSON.stringify unavailable"}
	}
	out, err := stringify(goja.Undefined(), val)
	if err != nil {
		return nil, &types.MalformedStateError{Marker: marker, Reason: "stringify failed", Err: err}
	}
	if goja.IsUndefined(out) {
		return nil, &types.MalformedStateError{Marker: marker, Reason: "state is not serializable"}
	}
	return []byte(out.String()), nil
}

const preludeJS = `
var globalThis = this;
var window = this;
var self = this;
var noop = function(){};
var __node = { parentNode: { removeChild: noop }, setAttribute: noop };
var document = {
	currentScript: __node,
	scripts: [__node],
	cookie: '',
	referrer: '',
	createElement: function(){ return { style: {}, setAttribute: noop, appendChild: noop }; },
	getElementsByTagName: function(){ return [__node]; },
	querySelector: function(){ return null; },
	querySelectorAll: function(){ return []; },
	addEventListener: noop,
	removeEventListener: noop,
	documentElement: { style: {} }
};
var navigator = { userAgent: '', language: 'zh-CN' };
var location = { href: '', protocol: 'https:', host: '', hostname: '', pathname: '/', search: '', hash: '' };
window.document = document;
window.navigator = navigator;
window.location = location;
window.top = window;
window.parent = window;
window.setTimeout = function(){ return 0; };
window.clearTimeout = noop;
window.setInterval = function(){ return 0; };
window.clearInterval = noop;
window.addEventListener = noop;
window.removeEventListener = noop;
window.localStorage = { getItem: function(){ return null; }, setItem: noop, removeItem: noop };
window.sessionStorage = window.localStorage;
window.performance = { now: function(){ return 0; }, mark: noop, measure: noop };
`
