package pfq

// Packet is the read-only view of a captured frame that packet
// functions operate on. Data starts at the Ethernet header.
type Packet interface {
	Data() []byte
	Ifindex() int
	Queue() int
}

// RawPacket is a Packet backed by a byte slice.
type RawPacket struct {
	Frame     []byte
	Interface int
	HWQueue   int
}

// Data returns the frame bytes.
func (p RawPacket) Data() []byte { return p.Frame }

// Ifindex returns the receiving interface index.
func (p RawPacket) Ifindex() int { return p.Interface }

// Queue returns the receiving hardware queue.
func (p RawPacket) Queue() int { return p.HWQueue }

// DevMapOp selects how DevMap.Update changes the matrix.
type DevMapOp int

const (
	// MapReset removes the group from the selected entries.
	MapReset DevMapOp = iota
	// MapSet adds the group to the selected entries.
	MapSet
)

const (
	// AnyDevice selects every device in DevMap.Update.
	AnyDevice = -1
	// AnyQueue selects every queue in DevMap.Update.
	AnyQueue = -1
)

// DevMap routes (device, queue) pairs to groups. The group manager
// resets a group's entries when the group is destroyed.
type DevMap interface {
	Update(op DevMapOp, dev, queue int, gid GroupID) error
}
