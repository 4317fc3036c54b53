package http

import (
	"encoding/json"

	"github.com/roomcast/roomcast-server/internal/core"
	"github.com/roomcast/roomcast-server/internal/proto"
)

// inboundToCommand validates an inbound envelope and builds the matching
// core command. Validation happens here, at the boundary, so the hub can
// assume well-formed commands. A non-nil proto.Error is reported back to the
// client without touching the core; a non-nil error tears the connection down.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		if join.Username == "" {
			return nil, validationError("username is required"), nil
		}
		if join.Room == "" {
			return nil, validationError("room is required"), nil
		}
		return &core.Command{
			Kind:     core.CommandJoin,
			Username: join.Username,
			Room:     join.Room,
		}, nil, nil
	case proto.InboundTypeLeave:
		return &core.Command{Kind: core.CommandLeave}, nil, nil
	case proto.InboundTypeMsg:
		var msg proto.MsgData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, nil, err
		}
		if msg.Text == "" {
			return nil, validationError("text is required"), nil
		}
		return &core.Command{
			Kind: core.CommandSendMessage,
			Text: msg.Text,
		}, nil, nil
	case proto.InboundTypeTyping:
		var typing proto.TypingData
		if err := json.Unmarshal(inbound.Data, &typing); err != nil {
			return nil, nil, err
		}
		return &core.Command{
			Kind:   core.CommandTyping,
			Typing: typing.Typing,
		}, nil, nil
	case proto.InboundTypePrivate:
		var pm proto.PrivateData
		if err := json.Unmarshal(inbound.Data, &pm); err != nil {
			return nil, nil, err
		}
		if pm.To == "" {
			return nil, validationError("to is required"), nil
		}
		if pm.Text == "" {
			return nil, validationError("text is required"), nil
		}
		return &core.Command{
			Kind:       core.CommandSendPrivate,
			TargetUser: pm.To,
			Text:       pm.Text,
		}, nil, nil
	case proto.InboundTypeSubscribe:
		var sub proto.SubscribeData
		if err := json.Unmarshal(inbound.Data, &sub); err != nil {
			return nil, nil, err
		}
		if sub.User == "" {
			return nil, validationError("user is required"), nil
		}
		return &core.Command{
			Kind:     core.CommandSubscribe,
			Username: sub.User,
		}, nil, nil
	case proto.InboundTypeMarkRead:
		var mr proto.MarkReadData
		if err := json.Unmarshal(inbound.Data, &mr); err != nil {
			return nil, nil, err
		}
		if mr.ID == "" {
			return nil, validationError("id is required"), nil
		}
		return &core.Command{
			Kind:           core.CommandMarkRead,
			NotificationID: mr.ID,
		}, nil, nil
	default:
		return nil, validationError("unknown message type: " + inbound.Type), nil
	}
}

// outboundFromEvent maps a core event to the wire representation.
func outboundFromEvent(ev *core.Event) proto.Outbound {
	switch ev.Kind {
	case core.EventWelcome:
		return eventOutbound(proto.EventWelcome, proto.WelcomeData{
			ConnectionID: ev.User,
			Protocol:     proto.ProtocolVersion,
		})
	case core.EventMessage:
		return eventOutbound(proto.EventMessage, messageData(ev.Message))
	case core.EventMessageHistory:
		msgs := make([]proto.EventMessageData, 0, len(ev.Messages))
		for _, m := range ev.Messages {
			msgs = append(msgs, messageData(m))
		}
		return eventOutbound(proto.EventMessageHistory, proto.HistoryData{
			Room:     ev.Room,
			Messages: msgs,
		})
	case core.EventUserList:
		return eventOutbound(proto.EventUserList, proto.UserListData{
			Room:  ev.Room,
			Users: ev.Users,
		})
	case core.EventUserTyping:
		return eventOutbound(proto.EventUserTyping, proto.UserTypingData{
			Room:   ev.Room,
			User:   ev.User,
			Typing: ev.Typing,
		})
	case core.EventPrivateMessage:
		return eventOutbound(proto.EventPrivateMessage, proto.PrivateMessageData{
			From: ev.Private.From,
			Name: ev.Private.FromName,
			To:   ev.Private.To,
			Text: ev.Private.Text,
			TS:   ev.Private.CreatedAt.Unix(),
		})
	case core.EventNotification:
		return eventOutbound(proto.EventNotification, ev.Notification)
	case core.EventNotificationHistory:
		return eventOutbound(proto.EventNotificationHistory, ev.Notifications)
	case core.EventSubscribed:
		return eventOutbound(proto.EventSubscribed, proto.SubscribedData{User: ev.User})
	case core.EventMarkReadResponse:
		return eventOutbound(proto.EventMarkReadResponse, proto.MarkReadResponseData{
			NotificationID: ev.MarkRead.NotificationID,
			Success:        ev.MarkRead.Success,
		})
	case core.EventError:
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: ev.Error.Code, Msg: ev.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func messageData(m core.Message) proto.EventMessageData {
	return proto.EventMessageData{
		ID:   m.ID,
		Room: m.Room,
		Kind: string(m.Kind),
		User: m.From,
		Name: m.FromName,
		Text: m.Text,
		TS:   m.CreatedAt.Unix(),
	}
}

func eventOutbound(event string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: event, Data: data}
}

func validationError(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeValidation, Msg: msg}
}
