package ccid

// Kind identifies each reader command. It selects the response
// classification rules and names the step in errors and logs.
type Kind int

const (
	KindPowerOn Kind = iota
	KindPowerOff
	KindGetUID
	KindLoadKey
	KindAuthenticate
	KindWritePage
	KindWriteAuthKey
)

func (k Kind) String() string {
	switch k {
	case KindPowerOn:
		return "PowerOn"
	case KindPowerOff:
		return "PowerOff"
	case KindGetUID:
		return "GetUID"
	case KindLoadKey:
		return "LoadKey"
	case KindAuthenticate:
		return "Authenticate"
	case KindWritePage:
		return "WritePage"
	case KindWriteAuthKey:
		return "WriteAuthKey"
	default:
		return "Unknown"
	}
}

// Command pairs a kind with its wire message. Commands carry no sequence
// number; the transport assigns one at send time, and a retry of the same
// Command goes out under a fresh number.
type Command struct {
	Kind    Kind
	Type    byte
	Payload []byte
}

// Frame builds the wire frame for c under the given sequence number.
func (c Command) Frame(seq byte) Frame {
	return Frame{Type: c.Type, Seq: seq, Payload: c.Payload}
}

// PowerOn activates the card in the reader field.
func PowerOn() Command {
	return Command{Kind: KindPowerOn, Type: MsgPowerOn}
}

// PowerOff deactivates the card.
func PowerOff() Command {
	return Command{Kind: KindPowerOff, Type: MsgPowerOff}
}

// GetUID requests the card UID (Get Data, FF CA 00 00 00).
func GetUID() Command {
	return Command{
		Kind:    KindGetUID,
		Type:    MsgXfrBlock,
		Payload: []byte{0xFF, 0xCA, 0x00, 0x00, 0x00},
	}
}

// LoadKey places a 16-byte 3DES key into one of the reader's volatile key
// slots (FF 82 00 slot 10 + key).
func LoadKey(slot byte, key [16]byte) Command {
	apdu := make([]byte, 0, 5+len(key))
	apdu = append(apdu, 0xFF, 0x82, 0x00, slot, 0x10)
	apdu = append(apdu, key[:]...)
	return Command{Kind: KindLoadKey, Type: MsgXfrBlock, Payload: apdu}
}

// Authenticate runs the 3DES handshake against a protected page using a
// previously loaded key slot (FF 86 00 00 05 01 00 page 60 slot).
func Authenticate(page, slot byte) Command {
	return Command{
		Kind:    KindAuthenticate,
		Type:    MsgXfrBlock,
		Payload: []byte{0xFF, 0x86, 0x00, 0x00, 0x05, 0x01, 0x00, page, 0x60, slot},
	}
}

// WritePage writes one 4-byte card page (Update Binary, FF D6 00 page 04).
func WritePage(page byte, data [4]byte) Command {
	apdu := make([]byte, 0, 5+len(data))
	apdu = append(apdu, 0xFF, 0xD6, 0x00, page, 0x04)
	apdu = append(apdu, data[:]...)
	return Command{Kind: KindWritePage, Type: MsgXfrBlock, Payload: apdu}
}

// WriteAuthKey commits the key loaded by LoadKey to the card's key pages
// 44-47 (FF 87 00 00 00). The card must be authenticated first.
func WriteAuthKey() Command {
	return Command{
		Kind:    KindWriteAuthKey,
		Type:    MsgXfrBlock,
		Payload: []byte{0xFF, 0x87, 0x00, 0x00, 0x00},
	}
}
