package domain

import "github.com/berfenger/purifier2mqtt/pkg/miio"

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_DEVICE       = "device"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type DeviceInfo struct {
	Address string
	Model   string
}

type EnsureBoundRequest struct {
	ActorRequestMixIn
}

type EnsureBoundResponse struct {
	ActorResponseMixIn
	Device miio.Device
	Info   DeviceInfo
}

func (r EnsureBoundRequest) FailWith(err error) ActorResponse {
	return EnsureBoundResponse{ActorResponseMixIn: ActorResponseMixIn{ResponseError: err}}
}

type GetCharacteristicRequest struct {
	ActorRequestMixIn
	Id string
}

type GetCharacteristicResponse struct {
	ActorResponseMixIn
	Id    string
	Value any
}

func (r GetCharacteristicRequest) FailWith(err error) ActorResponse {
	return GetCharacteristicResponse{ActorResponseMixIn: ActorResponseMixIn{ResponseError: err}, Id: r.Id}
}

type SetCharacteristicRequest struct {
	ActorRequestMixIn
	Id    string
	Value any
}

type SetCharacteristicResponse struct {
	ActorResponseMixIn
	Id string
}

func (r SetCharacteristicRequest) FailWith(err error) ActorResponse {
	return SetCharacteristicResponse{ActorResponseMixIn: ActorResponseMixIn{ResponseError: err}, Id: r.Id}
}

type IdentifyRequest struct {
	ActorRequestMixIn
}

type IdentifyResponse struct {
	ActorResponseMixIn
}

func (r IdentifyRequest) FailWith(err error) ActorResponse {
	return IdentifyResponse{ActorResponseMixIn: ActorResponseMixIn{ResponseError: err}}
}

type ListCharacteristicsRequest struct {
	ActorRequestMixIn
}

type ListCharacteristicsResponse struct {
	ActorResponseMixIn
	Ids []string
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	Switches     []GenericSwitch
	InputNumbers []GenericInputNumber
	Selects      []GenericSelect
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

// ensure interface compliance
var _ DeviceRequest = (*EnsureBoundRequest)(nil)
var _ DeviceRequest = (*GetCharacteristicRequest)(nil)
var _ DeviceRequest = (*SetCharacteristicRequest)(nil)
var _ DeviceRequest = (*IdentifyRequest)(nil)

// StateResyncRequest asks the device actor to republish every known value,
// e.g. after the MQTT session was re-established.
type StateResyncRequest struct {
	ActorRequestMixIn
}
