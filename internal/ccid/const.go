package ccid

// Message types (CCID rev 1.1 §6).
const (
	MsgPowerOn    byte = 0x62 // PC_to_RDR_IccPowerOn
	MsgPowerOff   byte = 0x63 // PC_to_RDR_IccPowerOff
	MsgXfrBlock   byte = 0x6F // PC_to_RDR_XfrBlock
	MsgDataBlock  byte = 0x80 // RDR_to_PC_DataBlock
	MsgSlotStatus byte = 0x81 // RDR_to_PC_SlotStatus
)

// Header layout.
const (
	HeaderSize = 10
	MaxPayload = 261
)

// Link framing bytes. On the serial line every CCID message travels as
// STX + message + ETX + BCC, where BCC is the XOR of the message bytes
// and the ETX.
const (
	STX byte = 0x02
	ETX byte = 0x03
)

// bStatus values (reply header offset 7). The command status lives in the
// top two bits; readers put ICC state in the low bits, so compare through
// StatusMask.
const (
	StatusMask          byte = 0xC0
	StatusOK            byte = 0x00
	StatusFailed        byte = 0x40
	StatusTimeExtension byte = 0x80
)

// bError values (reply header offset 8, CCID §6.2.6).
const (
	ErrorCodeNone     byte = 0x00
	ErrorCodeICCMute  byte = 0x02 // no card in the field, or it stopped answering
	ErrorCodeAuthFail byte = 0x69
)

// Reader defaults for Ultralight C work: the candidate key goes to
// volatile slot 3 and authentication targets protected page 4.
const (
	DefaultKeySlot  byte = 3
	DefaultAuthPage byte = 4
)

// Card key pages. WriteAuthKey commits the loaded key to pages 44-47
// (0x2C-0x2F) of the card.
const (
	KeyPageFirst byte = 0x2C
	KeyPageLast  byte = 0x2F
)
