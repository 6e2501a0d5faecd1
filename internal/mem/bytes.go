package mem

// BytesCapacity is the fixed size of the byte-addressable memory region.
const BytesCapacity = 256

// Bytes is the simulator's 256-cell memory, indexed directly by byte value.
type Bytes struct {
	data [BytesCapacity]byte
}

// Load reads the byte at addr.
func (m *Bytes) Load(addr byte) byte {
	return m.data[addr]
}

// Store writes val at addr.
func (m *Bytes) Store(addr, val byte) {
	m.data[addr] = val
}
