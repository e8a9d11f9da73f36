package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

type MessageType string

const (
	MessageDishUpdated MessageType = "DISH_UPDATED"
	MessageAllDishes   MessageType = "ALL_DISHES"
)

// Message is the payload pushed over live channels: {"type": ..., "data": ...}.
// Data is a Dish for DISH_UPDATED and a []Dish for ALL_DISHES.
type Message struct {
	Type MessageType `json:"type"`
	Data any         `json:"data"`
}

var ErrUnknownMessageType = errors.New("unknown message type")

func NewDishUpdated(dish Dish) Message {
	return Message{Type: MessageDishUpdated, Data: dish}
}

func NewAllDishes(dishes []Dish) Message {
	return Message{Type: MessageAllDishes, Data: dishes}
}

// Dishes returns the records carried by the message, regardless of its type.
func (m Message) Dishes() []Dish {
	switch d := m.Data.(type) {
	case Dish:
		return []Dish{d}
	case []Dish:
		return d
	default:
		return nil
	}
}

// DecodeMessage parses a raw frame into a Message with a typed Data field.
func DecodeMessage(raw []byte) (Message, error) {
	var envelope struct {
		Type MessageType     `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Message{}, fmt.Errorf("failed to decode message envelope: %w", err)
	}

	switch envelope.Type {
	case MessageDishUpdated:
		var dish Dish
		if err := json.Unmarshal(envelope.Data, &dish); err != nil {
			return Message{}, fmt.Errorf("failed to decode %s payload: %w", envelope.Type, err)
		}
		return NewDishUpdated(dish), nil
	case MessageAllDishes:
		var dishes []Dish
		if err := json.Unmarshal(envelope.Data, &dishes); err != nil {
			return Message{}, fmt.Errorf("failed to decode %s payload: %w", envelope.Type, err)
		}
		return NewAllDishes(dishes), nil
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownMessageType, envelope.Type)
	}
}
