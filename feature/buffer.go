package feature

import (
	"osmscout/fileio"
	"osmscout/types"
)

// ValueBuffer is the typed attribute record every Node/Way/Area carries:
// a reference to its sealed TypeInfo, a feature-present bitmask,
// and the values of whichever features are actually present.
type ValueBuffer struct {
	typeInfo *types.TypeInfo
	mask     []byte
	values   map[int]Value // sparse, keyed by FeatureInstance.Index
}

func NewValueBuffer() *ValueBuffer {
	return &ValueBuffer{}
}

// SetType clears all feature flags and resizes the buffer for t.
func (b *ValueBuffer) SetType(t *types.TypeInfo) {
	b.typeInfo = t
	b.mask = make([]byte, t.FeatureMaskBytes())
	b.values = map[int]Value{}
}

func (b *ValueBuffer) Type() *types.TypeInfo { return b.typeInfo }

func (b *ValueBuffer) HasFeature(index int) bool {
	if index/8 >= len(b.mask) {
		return false
	}
	return b.mask[index/8]&(1<<uint(index%8)) != 0
}

func (b *ValueBuffer) setFlag(index int) {
	b.mask[index/8] |= 1 << uint(index%8)
}

func (b *ValueBuffer) clearFlag(index int) {
	if index/8 >= len(b.mask) {
		return
	}
	b.mask[index/8] &^= 1 << uint(index%8)
}

// AllocateValue marks index present and, if the feature carries a value,
// allocates it via the feature's constructor.
func (b *ValueBuffer) AllocateValue(inst types.FeatureInstance) Value {
	b.setFlag(inst.Index)
	if !inst.HasValue {
		return nil
	}
	f := inst.Feature.(Feature)
	v := f.AllocateValue()
	b.values[inst.Index] = v
	return v
}

func (b *ValueBuffer) FreeValue(inst types.FeatureInstance) {
	b.clearFlag(inst.Index)
	delete(b.values, inst.Index)
}

// GetValue returns the (possibly nil) value stored for inst.
func (b *ValueBuffer) GetValue(inst types.FeatureInstance) Value {
	return b.values[inst.Index]
}

// Parse dispatches every feature registered on the buffer's type against
// tags, allocating and storing whichever values the feature's Parse
// recognises.
func (b *ValueBuffer) Parse(reporter ErrorReporter, osmRef string, tags TagMap) {
	if b.typeInfo == nil {
		return
	}
	for _, inst := range b.typeInfo.Features() {
		f, ok := inst.Feature.(Feature)
		if !ok {
			continue
		}
		value, present := f.Parse(reporter, osmRef, tags)
		if !present {
			continue
		}
		b.setFlag(inst.Index)
		if inst.HasValue && value != nil {
			b.values[inst.Index] = value
		}
	}
}

// specialFlagCapacity is how many caller-defined special flags piggyback in
// the mask's last byte when there is spare room, else one extra byte is appended to carry them.
const specialFlagCapacity = 8

// Write serialises the flag-mask (packing up to len(specialFlags) caller
// flags into spare high bits of the last mask byte, MSB-first, or appending
// one byte if there is no room) followed by each present feature's value in
// registration order.
func (b *ValueBuffer) Write(w *fileio.Writer, specialFlags []bool) error {
	featureBits := 0
	if b.typeInfo != nil {
		featureBits = b.typeInfo.FeatureCount()
	}
	maskBytes := (featureBits + 7) / 8
	spareBits := maskBytes*8 - featureBits

	mask := make([]byte, len(b.mask))
	copy(mask, b.mask)

	appendExtra := len(specialFlags) > spareBits
	if appendExtra {
		mask = append(mask, 0)
	}
	for i, flag := range specialFlags {
		if !flag {
			continue
		}
		if !appendExtra {
			bitPos := 7 - (spareBits - 1 - i)
			mask[maskBytes-1] |= 1 << uint(bitPos)
		} else {
			mask[len(mask)-1] |= 1 << uint(i%8)
		}
	}

	if err := w.WriteUvarint(uint64(len(mask))); err != nil {
		return err
	}
	for _, m := range mask {
		if err := w.WriteUint8(m); err != nil {
			return err
		}
	}

	if b.typeInfo == nil {
		return nil
	}
	for _, inst := range b.typeInfo.Features() {
		if !b.HasFeature(inst.Index) || !inst.HasValue {
			continue
		}
		v, ok := b.values[inst.Index]
		if !ok || v == nil {
			continue
		}
		if err := v.Write(w); err != nil {
			return err
		}
	}
	return nil
}

// Read is the Write inverse with no special flags expected. t must already
// be sealed with the same feature layout used to write the buffer.
func (b *ValueBuffer) Read(s *fileio.Scanner, t *types.TypeInfo) error {
	_, err := b.ReadWithFlags(s, t, 0)
	return err
}

// ReadWithFlags is the Write inverse; flagCount must equal the
// len(specialFlags) the buffer was written with, and the flags come back
// in write order.
func (b *ValueBuffer) ReadWithFlags(s *fileio.Scanner, t *types.TypeInfo, flagCount int) ([]bool, error) {
	b.SetType(t)

	maskLen, err := s.ReadUvarint()
	if err != nil {
		return nil, err
	}
	mask := make([]byte, maskLen)
	for i := range mask {
		v, err := s.ReadUint8()
		if err != nil {
			return nil, err
		}
		mask[i] = v
	}
	copy(b.mask, mask)

	var flags []bool
	if flagCount > 0 && len(mask) > 0 {
		featureBits := t.FeatureCount()
		maskBytes := (featureBits + 7) / 8
		spareBits := maskBytes*8 - featureBits
		appended := flagCount > spareBits

		flags = make([]bool, flagCount)
		for i := range flags {
			if !appended {
				bitPos := 7 - (spareBits - 1 - i)
				flags[i] = mask[maskBytes-1]&(1<<uint(bitPos)) != 0
			} else {
				flags[i] = mask[len(mask)-1]&(1<<uint(i%8)) != 0
			}
		}
		// clear the flag bits so HasFeature never sees them
		if !appended && maskBytes > 0 && maskBytes <= len(b.mask) {
			for i := 0; i < flagCount; i++ {
				bitPos := 7 - (spareBits - 1 - i)
				b.mask[maskBytes-1] &^= 1 << uint(bitPos)
			}
		}
	}

	for _, inst := range t.Features() {
		if !b.HasFeature(inst.Index) || !inst.HasValue {
			continue
		}
		f := inst.Feature.(Feature)
		v := f.AllocateValue()
		if err := v.Read(s); err != nil {
			return nil, err
		}
		b.values[inst.Index] = v
	}
	return flags, nil
}
