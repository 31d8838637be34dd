package cmditf

import "github.com/arsdk-go/arsdk/pkg/arsdk/varint"

// packBuilder assembles one outgoing v2/v3 pack frame payload (§4.6, §4.7).
type packBuilder struct {
	version int
	maxSize int
	buf     []byte
}

func newPackBuilder(version, maxSize int) *packBuilder {
	return &packBuilder{version: version, maxSize: maxSize}
}

func (b *packBuilder) len() int       { return len(b.buf) }
func (b *packBuilder) remaining() int { return b.maxSize - len(b.buf) }

// v2ItemOverhead is the u16 length prefix v2 puts in front of each whole
// command.
const v2ItemOverhead = 2

// v3FragOverhead is the worst-case varuint-length-prefix (2 bytes, since
// every chunk length stays under 16384) plus the 1-byte continuation flag
// that precedes every v3 fragment, complete or not.
const v3FragOverhead = 3

// addWhole appends a complete, unfragmented command (v2 framing, or a v3
// command that happens to fit in one fragment). Returns false if it does
// not fit in the remaining space.
func (b *packBuilder) addWhole(payload []byte) bool {
	if b.version == 2 {
		if v2ItemOverhead+len(payload) > b.remaining() {
			return false
		}
		b.buf = append(b.buf, byte(len(payload)), byte(len(payload)>>8))
		b.buf = append(b.buf, payload...)
		return true
	}
	return b.addFragment(payload, false)
}

// addFragment appends one v3 fragment: [varuint(len(chunk)+1)][flag][chunk].
// flag is 1 if more fragments of this command follow, 0 if this completes
// it. Returns false if it does not fit.
func (b *packBuilder) addFragment(chunk []byte, more bool) bool {
	if v3FragOverhead+len(chunk) > b.remaining() {
		return false
	}
	b.buf = varint.Encode(b.buf, uint32(len(chunk)+1))
	flag := byte(0)
	if more {
		flag = 1
	}
	b.buf = append(b.buf, flag)
	b.buf = append(b.buf, chunk...)
	return true
}

// packItem is one decoded fragment (complete or partial) pulled out of a
// received v3 pack; v2 packs decode to items with More always false.
type packItem struct {
	data []byte
	more bool
}

// decodePack splits a received pack payload into its items.
func decodePack(version int, payload []byte) ([]packItem, error) {
	var items []packItem
	for len(payload) > 0 {
		if version == 2 {
			if len(payload) < 2 {
				return nil, errTruncatedPack
			}
			n := int(payload[0]) | int(payload[1])<<8
			payload = payload[2:]
			if n > len(payload) {
				return nil, errTruncatedPack
			}
			items = append(items, packItem{data: payload[:n]})
			payload = payload[n:]
			continue
		}
		total, n, err := varint.Decode(payload)
		if err != nil {
			return nil, err
		}
		payload = payload[n:]
		if total < 1 || int(total) > len(payload) {
			return nil, errTruncatedPack
		}
		flag := payload[0]
		chunk := payload[1:total]
		items = append(items, packItem{data: chunk, more: flag != 0})
		payload = payload[total:]
	}
	return items, nil
}

var errTruncatedPack = packError("cmditf: truncated pack")

type packError string

func (e packError) Error() string { return string(e) }
