package service

import (
	"context"
	"errors"

	"quote_assistant_backend/internal/conversation/ports"
)

type outboundKind int

const (
	outboundText outboundKind = iota + 1
	outboundButtons
	outboundList
	outboundDocument
)

type outbound struct {
	kind        outboundKind
	body        string
	buttons     []ports.Button
	buttonLabel string
	sections    []ports.ListSection
	document    ports.Document
}

// pendingReply holds the turn's single response until the new state has
// been saved.
type pendingReply struct {
	msg *outbound
}

// Compile-time check that pendingReply implements ports.Responder.
var _ ports.Responder = (*pendingReply)(nil)

func (p *pendingReply) hold(m outbound) error {
	if p.msg != nil {
		return ports.ErrResponseAlreadySent
	}
	p.msg = &m
	return nil
}

func (p *pendingReply) SendText(ctx context.Context, body string) error {
	return p.hold(outbound{kind: outboundText, body: body})
}

func (p *pendingReply) SendButtons(ctx context.Context, body string, buttons []ports.Button) error {
	return p.hold(outbound{kind: outboundButtons, body: body, buttons: buttons})
}

func (p *pendingReply) SendList(ctx context.Context, body, buttonLabel string, sections []ports.ListSection) error {
	return p.hold(outbound{kind: outboundList, body: body, buttonLabel: buttonLabel, sections: sections})
}

func (p *pendingReply) SendDocument(ctx context.Context, doc ports.Document) error {
	return p.hold(outbound{kind: outboundDocument, document: doc})
}

func (p *pendingReply) Sent() bool { return p.msg != nil }

// flush delivers the held response through r.
func (p *pendingReply) flush(ctx context.Context, r ports.Responder) error {
	if p.msg == nil {
		return errors.New("no response to deliver")
	}
	m := p.msg
	switch m.kind {
	case outboundText:
		return r.SendText(ctx, m.body)
	case outboundButtons:
		return r.SendButtons(ctx, m.body, m.buttons)
	case outboundList:
		return r.SendList(ctx, m.body, m.buttonLabel, m.sections)
	case outboundDocument:
		return r.SendDocument(ctx, m.document)
	default:
		return errors.New("unknown response kind")
	}
}
