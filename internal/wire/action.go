package wire

// ActionKind is a fire-and-forget frontend-to-agent message; no response is
// expected.
type ActionKind interface {
	actionTag() uint8
}

type ActTerminal struct{ Data []byte }

type ActSignal struct {
	PID  int32
	Kind SignalKind
}

type ActNewFile struct{ Path string }
type ActNewFolder struct{ Path string }

type ActRename struct {
	From string
	To   string
}

type ActDeleteFile struct{ Path string }
type ActDeleteFolder struct{ Path string }

type ActUpload struct {
	Path string
	Data []byte
}

const (
	tagActTerminal uint8 = iota
	tagActSignal
	tagActNewFile
	tagActNewFolder
	tagActRename
	tagActDeleteFile
	tagActDeleteFolder
	tagActUpload
)

func (ActTerminal) actionTag() uint8     { return tagActTerminal }
func (ActSignal) actionTag() uint8       { return tagActSignal }
func (ActNewFile) actionTag() uint8      { return tagActNewFile }
func (ActNewFolder) actionTag() uint8    { return tagActNewFolder }
func (ActRename) actionTag() uint8       { return tagActRename }
func (ActDeleteFile) actionTag() uint8   { return tagActDeleteFile }
func (ActDeleteFolder) actionTag() uint8 { return tagActDeleteFolder }
func (ActUpload) actionTag() uint8       { return tagActUpload }

func EncodeActionKind(a ActionKind) []byte {
	e := newEncoder()
	e.u8(a.actionTag())
	switch v := a.(type) {
	case ActTerminal:
		e.bytesField(v.Data)
	case ActSignal:
		e.i32(v.PID)
		e.u8(uint8(v.Kind))
	case ActNewFile:
		e.str(v.Path)
	case ActNewFolder:
		e.str(v.Path)
	case ActRename:
		e.str(v.From)
		e.str(v.To)
	case ActDeleteFile:
		e.str(v.Path)
	case ActDeleteFolder:
		e.str(v.Path)
	case ActUpload:
		e.str(v.Path)
		e.bytesField(v.Data)
	}
	return e.bytes()
}

func DecodeActionKind(b []byte) (ActionKind, error) {
	d := newDecoder(b)
	tag, err := d.u8()
	if err != nil {
		return nil, err
	}
	var a ActionKind
	switch tag {
	case tagActTerminal:
		data, err := d.bytesField()
		if err != nil {
			return nil, err
		}
		a = ActTerminal{Data: data}
	case tagActSignal:
		pid, err := d.i32()
		if err != nil {
			return nil, err
		}
		kind, err := d.u8()
		if err != nil {
			return nil, err
		}
		a = ActSignal{PID: pid, Kind: SignalKind(kind)}
	case tagActNewFile:
		path, err := d.str()
		if err != nil {
			return nil, err
		}
		a = ActNewFile{Path: path}
	case tagActNewFolder:
		path, err := d.str()
		if err != nil {
			return nil, err
		}
		a = ActNewFolder{Path: path}
	case tagActRename:
		from, err := d.str()
		if err != nil {
			return nil, err
		}
		to, err := d.str()
		if err != nil {
			return nil, err
		}
		a = ActRename{From: from, To: to}
	case tagActDeleteFile:
		path, err := d.str()
		if err != nil {
			return nil, err
		}
		a = ActDeleteFile{Path: path}
	case tagActDeleteFolder:
		path, err := d.str()
		if err != nil {
			return nil, err
		}
		a = ActDeleteFolder{Path: path}
	case tagActUpload:
		path, err := d.str()
		if err != nil {
			return nil, err
		}
		data, err := d.bytesField()
		if err != nil {
			return nil, err
		}
		a = ActUpload{Path: path, Data: data}
	default:
		return nil, ErrUnknownVariant
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return a, nil
}

// BackendAction is a fire-and-forget agent-to-frontend message.
type BackendAction interface {
	backendActionTag() uint8
}

type BActHandshake struct{ Handshake Handshake }
type BActTerminal struct{ Data []byte }

const (
	tagBActHandshake uint8 = iota
	tagBActTerminal
)

func (BActHandshake) backendActionTag() uint8 { return tagBActHandshake }
func (BActTerminal) backendActionTag() uint8  { return tagBActTerminal }

func EncodeBackendAction(a BackendAction) []byte {
	e := newEncoder()
	e.u8(a.backendActionTag())
	switch v := a.(type) {
	case BActHandshake:
		e.buf.Write(v.Handshake.Encode())
	case BActTerminal:
		e.bytesField(v.Data)
	}
	return e.bytes()
}

func DecodeBackendAction(b []byte) (BackendAction, error) {
	d := newDecoder(b)
	tag, err := d.u8()
	if err != nil {
		return nil, err
	}
	var a BackendAction
	switch tag {
	case tagBActHandshake:
		h, err := DecodeHandshake(d.b[d.pos:])
		if err != nil {
			return nil, err
		}
		d.pos = len(d.b)
		a = BActHandshake{Handshake: h}
	case tagBActTerminal:
		data, err := d.bytesField()
		if err != nil {
			return nil, err
		}
		a = BActTerminal{Data: data}
	default:
		return nil, ErrUnknownVariant
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return a, nil
}
