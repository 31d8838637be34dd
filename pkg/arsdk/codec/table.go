package codec

// Project/class ids for the descriptors registered below. These follow the
// "Ardrone3" naming used throughout spec.md's end-to-end scenarios; a real
// deployment would generate this table from the project's XML command
// definitions (out of scope here, §1).
const (
	ProjectArdrone3 uint8 = 1

	ClassArdrone3Piloting          uint8 = 0
	ClassArdrone3PilotingState     uint8 = 4
	ClassArdrone3GPSSettingsState  uint8 = 8
)

func init() {
	RegisterProject(ProjectArdrone3, map[uint8][]*CmdDesc{
		ClassArdrone3Piloting: {
			{
				Prj: ProjectArdrone3, Cls: ClassArdrone3Piloting, Cmd: 0,
				Name: "Ardrone3.Piloting.TakeOff", BufferType: BufferAck, Timeout: TimeoutRetry,
			},
			{
				Prj: ProjectArdrone3, Cls: ClassArdrone3Piloting, Cmd: 1,
				Name: "Ardrone3.Piloting.Landing", BufferType: BufferAck, Timeout: TimeoutRetry,
			},
			{
				Prj: ProjectArdrone3, Cls: ClassArdrone3Piloting, Cmd: 2,
				Name: "Ardrone3.Piloting.PCMD", BufferType: BufferNonAck, Timeout: TimeoutPop,
				Args: []ArgDesc{
					{Name: "Flag", Type: U8},
					{Name: "Roll", Type: I8},
					{Name: "Pitch", Type: I8},
					{Name: "Yaw", Type: I8},
					{Name: "Gaz", Type: I8},
					{Name: "TimestampAndSeqNum", Type: U32},
				},
			},
			{
				Prj: ProjectArdrone3, Cls: ClassArdrone3Piloting, Cmd: 3,
				Name: "Ardrone3.Piloting.Emergency", BufferType: BufferHighPrio, Timeout: TimeoutRetry,
			},
		},
		ClassArdrone3PilotingState: {
			{
				Prj: ProjectArdrone3, Cls: ClassArdrone3PilotingState, Cmd: 0,
				Name: "Ardrone3.PilotingState.AttitudeChanged", BufferType: BufferAck, Timeout: TimeoutPop,
				Args: []ArgDesc{
					{Name: "Roll", Type: Float},
					{Name: "Pitch", Type: Float},
					{Name: "Yaw", Type: Float},
				},
			},
		},
		ClassArdrone3GPSSettingsState: {
			{
				Prj: ProjectArdrone3, Cls: ClassArdrone3GPSSettingsState, Cmd: 0,
				Name: "Ardrone3.GPSSettingsState.GPSFixStateChanged", BufferType: BufferAck, Timeout: TimeoutPop,
				Args: []ArgDesc{
					{Name: "Fixed", Type: Enum, EnumNames: map[int32]string{0: "NOT_FIXED", 1: "FIXED"}},
				},
			},
		},
	})
}
