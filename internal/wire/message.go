package wire

// FrontendMessage is the top-level frontend-to-agent envelope.
type FrontendMessage interface {
	frontendMessageTag() uint8
}

type FReq struct {
	CorrelationID uint16
	Req           RequestKind
}

type FAction struct {
	Act ActionKind
}

const (
	tagFReq uint8 = iota
	tagFAction
)

func (FReq) frontendMessageTag() uint8    { return tagFReq }
func (FAction) frontendMessageTag() uint8 { return tagFAction }

func EncodeFrontendMessage(m FrontendMessage) []byte {
	e := newEncoder()
	e.u8(m.frontendMessageTag())
	switch v := m.(type) {
	case FReq:
		e.u16(v.CorrelationID)
		e.buf.Write(EncodeRequestKind(v.Req))
	case FAction:
		e.buf.Write(EncodeActionKind(v.Act))
	}
	return e.bytes()
}

func DecodeFrontendMessage(b []byte) (FrontendMessage, error) {
	d := newDecoder(b)
	tag, err := d.u8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagFReq:
		cid, err := d.u16()
		if err != nil {
			return nil, err
		}
		req, err := DecodeRequestKind(d.b[d.pos:])
		if err != nil {
			return nil, err
		}
		return FReq{CorrelationID: cid, Req: req}, nil
	case tagFAction:
		act, err := DecodeActionKind(d.b[d.pos:])
		if err != nil {
			return nil, err
		}
		return FAction{Act: act}, nil
	default:
		return nil, ErrUnknownVariant
	}
}

// AgentMessage is the top-level agent-to-frontend envelope.
type AgentMessage interface {
	agentMessageTag() uint8
}

type AResp struct {
	CorrelationID uint16
	Resp          ResponseKind
}

type AAction struct {
	Act BackendAction
}

const (
	tagAResp uint8 = iota
	tagAAction
)

func (AResp) agentMessageTag() uint8   { return tagAResp }
func (AAction) agentMessageTag() uint8 { return tagAAction }

func EncodeAgentMessage(m AgentMessage) []byte {
	e := newEncoder()
	e.u8(m.agentMessageTag())
	switch v := m.(type) {
	case AResp:
		e.u16(v.CorrelationID)
		e.buf.Write(EncodeResponseKind(v.Resp))
	case AAction:
		e.buf.Write(EncodeBackendAction(v.Act))
	}
	return e.bytes()
}

func DecodeAgentMessage(b []byte) (AgentMessage, error) {
	d := newDecoder(b)
	tag, err := d.u8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagAResp:
		cid, err := d.u16()
		if err != nil {
			return nil, err
		}
		resp, err := DecodeResponseKind(d.b[d.pos:])
		if err != nil {
			return nil, err
		}
		return AResp{CorrelationID: cid, Resp: resp}, nil
	case tagAAction:
		act, err := DecodeBackendAction(d.b[d.pos:])
		if err != nil {
			return nil, err
		}
		return AAction{Act: act}, nil
	default:
		return nil, ErrUnknownVariant
	}
}
