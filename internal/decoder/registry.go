package decoder

import (
	"fmt"
	"strings"
)

// sniffLen is how many leading bytes decoders get to inspect.
const sniffLen = 64

// Registry holds all available decoders and provides format auto-detection.
type Registry struct {
	decoders []Decoder
}

// NewRegistry creates a registry with the given decoders, in priority order.
// With no arguments it holds every bundled decoder.
func NewRegistry(decoders ...Decoder) *Registry {
	if len(decoders) == 0 {
		decoders = []Decoder{
			NewGoTraceDecoder(),
			NewEventStreamDecoder(),
			NewJSONLinesDecoder(),
		}
	}
	return &Registry{decoders: decoders}
}

// Names returns the registered decoder names in priority order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.decoders))
	for _, d := range r.decoders {
		names = append(names, d.Name())
	}
	return names
}

// FindDecoder detects the correct decoder for the given file contents.
func (r *Registry) FindDecoder(data []byte) (Decoder, error) {
	header := data
	if len(header) > sniffLen {
		header = header[:sniffLen]
	}
	for _, d := range r.decoders {
		if d.CanDecode(header) {
			return d, nil
		}
	}
	return nil, newDecodeError("registry", 0, fmt.Errorf("no suitable decoder for %d byte input", len(data)))
}

// GetDecoderByName returns a decoder by its name.
func (r *Registry) GetDecoderByName(name string) (Decoder, error) {
	name = strings.ToLower(name)
	for _, d := range r.decoders {
		if strings.ToLower(d.Name()) == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("decoder not found: %s", name)
}

// Only returns a registry holding just the named decoder, so detection
// cannot fall through to another format.
func (r *Registry) Only(name string) (*Registry, error) {
	d, err := r.GetDecoderByName(name)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %s)", err, strings.Join(r.Names(), ", "))
	}
	return NewRegistry(d), nil
}

// Decode detects the format of data and starts decoding it.
func (r *Registry) Decode(data []byte) (Iterator, Decoder, error) {
	d, err := r.FindDecoder(data)
	if err != nil {
		return nil, nil, err
	}
	it, err := d.Decode(data)
	if err != nil {
		return nil, d, err
	}
	return it, d, nil
}
