package domain

import "fmt"

type SensorUpdateEventMixIn struct {
	Id string
}

type SensorUpdateEvent interface {
	SensorUpdateEvent() string
	SensorId() string
}

func (e SensorUpdateEventMixIn) SensorUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

// CharacteristicUpdateEvent carries a hub-facing value. Id is a CHAR_* constant.
type CharacteristicUpdateEvent struct {
	SensorUpdateEventMixIn
	Value any
}

type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type ConnectionStateUpdateEvent struct {
	SensorUpdateEventMixIn
	State ConnectionState
}

func NewCharacteristicUpdate(id string, value any) CharacteristicUpdateEvent {
	return CharacteristicUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: id},
		Value:                  value,
	}
}
