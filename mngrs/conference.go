package mngrs

import (
	"context"
	"fmt"

	helpers "github.com/Lineblocs/go-helpers"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"lineblocs.com/conference/types"
)

const (
	AdhocContext      = "conference_adhoc"
	AdhocHangupExten  = "h"
	AdhocOwnerVar     = "CONF_ADHOC_OWNER"
	MixingBridgeType  = "mixing"
	listRoomsAction   = "ConfbridgeListRooms"
	listMembersAction = "ConfbridgeList"
	redirectAction    = "Redirect"
)

// SignalingClient sends AMI actions and returns the event rows they produced.
type SignalingClient interface {
	Action(ctx context.Context, name string, params map[string]string) ([]map[string]string, error)
}

// ResourceClient manipulates channels and bridges over ARI. Every method
// returns an error matching types.ErrNotFound when the target is gone.
type ResourceClient interface {
	ChannelName(ctx context.Context, channelId string) (string, error)
	ChannelVar(ctx context.Context, channelId string, name string) (string, error)
	SetChannelVar(ctx context.Context, channelId string, name string, value string) error
	AnswerChannel(ctx context.Context, channelId string) error
	HangupChannel(ctx context.Context, channelId string) error

	ListBridges(ctx context.Context) ([]string, error)
	BridgeChannels(ctx context.Context, bridgeId string) ([]string, error)
	CreateBridge(ctx context.Context, bridgeId string, bridgeType string) error
	SetBridgeVar(ctx context.Context, bridgeId string, name string, value string) error
	AddChannelToBridge(ctx context.Context, bridgeId string, channelId string, inhibitConnectedLine bool) error
	DestroyBridge(ctx context.Context, bridgeId string) error
}

// Notifier is told about membership changes made on behalf of a user.
type Notifier interface {
	ParticipantLeft(ctx context.Context, conferenceId string, callId string, userUUID string) error
}

type ConferenceManager struct {
	Signaling SignalingClient
	Resources ResourceClient
	Notifier  Notifier
	NewId     func() string
}

func NewConferenceManager(signaling SignalingClient, resources ResourceClient, notifier Notifier) *ConferenceManager {
	item := ConferenceManager{
		Signaling: signaling,
		Resources: resources,
		Notifier:  notifier,
		NewId: func() string {
			return uuid.New().String()
		}}
	return &item
}

func (man *ConferenceManager) ListConferences(ctx context.Context) ([]types.Conference, error) {
	rows, err := man.Signaling.Action(ctx, listRoomsAction, nil)
	if err != nil {
		return nil, err
	}
	confs := make([]types.Conference, 0, len(rows))
	for _, row := range rows {
		if conf, ok := types.NewConference(row); ok {
			confs = append(confs, conf)
		}
	}
	return confs, nil
}

// GetConference returns nil without an error when the switch does not
// report the conference.
func (man *ConferenceManager) GetConference(ctx context.Context, conferenceId string) (*types.Conference, error) {
	conf, err := man.findConference(ctx, conferenceId)
	if err != nil || conf == nil {
		return nil, err
	}
	participants, err := man.Participants(ctx, conferenceId)
	if err != nil {
		return nil, err
	}
	conf.Participants = participants
	return conf, nil
}

func (man *ConferenceManager) CheckConference(ctx context.Context, conferenceId string) (bool, error) {
	conf, err := man.findConference(ctx, conferenceId)
	if err != nil {
		return false, err
	}
	return conf != nil, nil
}

func (man *ConferenceManager) Participants(ctx context.Context, conferenceId string) ([]types.Participant, error) {
	rows, err := man.Signaling.Action(ctx, listMembersAction, map[string]string{"Conference": conferenceId})
	if err != nil {
		return nil, err
	}
	participants := make([]types.Participant, 0, len(rows))
	for _, row := range rows {
		// AMI has been seen returning members of other rooms
		if row["Conference"] != conferenceId {
			continue
		}
		participants = append(participants, types.NewParticipant(row))
	}
	return participants, nil
}

func (man *ConferenceManager) findConference(ctx context.Context, conferenceId string) (*types.Conference, error) {
	confs, err := man.ListConferences(ctx)
	if err != nil {
		return nil, err
	}
	for _, conf := range confs {
		if conf.Id == conferenceId {
			found := conf
			return &found, nil
		}
	}
	return nil, nil
}

func (man *ConferenceManager) CreateAdhocConference(ctx context.Context, userUUID string, hostCallId string, participantCallIds []string) (string, error) {
	conferenceId := man.NewId()
	helpers.Log(logrus.InfoLevel, fmt.Sprintf("creating adhoc conference %s for user %s (host call %s)", conferenceId, userUUID, hostCallId))

	pairs, err := man.findCallPairs(ctx, participantCallIds)
	if err != nil {
		return "", err
	}

	for i, pair := range pairs {
		role := roleForPair(i)
		err := man.redirectPair(ctx, conferenceId, pair, role, userUUID)
		if err == nil {
			if role == ownerPair {
				helpers.Log(logrus.DebugLevel, fmt.Sprintf("conference %s owner leg is %s", conferenceId, pair.InitiatorCallId))
			}
			continue
		}
		if !man.benign(err, conferenceId, pair) {
			return conferenceId, err
		}
	}

	return conferenceId, nil
}

func (man *ConferenceManager) AddParticipant(ctx context.Context, conferenceId string, participantCallId string) error {
	pairs, err := man.findCallPairs(ctx, []string{participantCallId})
	if err != nil {
		return err
	}
	for _, pair := range pairs {
		err := man.redirectPair(ctx, conferenceId, pair, dependentPair, "")
		if err != nil && !man.benign(err, conferenceId, pair) {
			return err
		}
	}
	return nil
}

// redirectPair tags the initiator with the requesting user (when one is
// given) and moves both legs into the dialplan.
func (man *ConferenceManager) redirectPair(ctx context.Context, conferenceId string, pair types.CallPair, role pairRole, userUUID string) error {
	if userUUID != "" {
		if err := man.Resources.SetChannelVar(ctx, pair.InitiatorCallId, AdhocOwnerVar, userUUID); err != nil {
			return err
		}
	}
	initiatorName, err := man.Resources.ChannelName(ctx, pair.InitiatorCallId)
	if err != nil {
		return err
	}
	channelName, err := man.Resources.ChannelName(ctx, pair.CallId)
	if err != nil {
		return err
	}

	redirect := role.redirect(conferenceId, channelName, initiatorName)
	helpers.Log(logrus.DebugLevel, fmt.Sprintf("redirecting %s pair %s (%s) / %s (%s) into %s", role, pair.CallId, channelName, pair.InitiatorCallId, initiatorName, conferenceId))
	_, err = man.Signaling.Action(ctx, redirectAction, redirect.Params())
	return err
}

// benign logs a per-leg failure and reports whether the loop may go on.
func (man *ConferenceManager) benign(err error, conferenceId string, pair types.CallPair) bool {
	switch {
	case types.IsTransport(err):
		helpers.Log(logrus.ErrorLevel, fmt.Sprintf("ami error while moving call %s into conference %s: %s", pair.CallId, conferenceId, err.Error()))
		return true
	case types.IsNotFound(err):
		helpers.Log(logrus.InfoLevel, fmt.Sprintf("call %s left before joining conference %s: %s", pair.CallId, conferenceId, err.Error()))
		return true
	}
	helpers.Log(logrus.ErrorLevel, fmt.Sprintf("error occured while moving call %s into conference %s: %s", pair.CallId, conferenceId, err.Error()))
	return false
}

// JoinBridge is run for every leg that reaches the conference entry point.
func (man *ConferenceManager) JoinBridge(ctx context.Context, channelId string, conferenceId string) error {
	helpers.Log(logrus.InfoLevel, fmt.Sprintf("%s is joining bridge %s", channelId, conferenceId))

	if err := man.Resources.AnswerChannel(ctx, channelId); err != nil {
		if types.IsNotFound(err) {
			helpers.Log(logrus.InfoLevel, fmt.Sprintf("channel %s left the call before being bridged", channelId))
			return nil
		}
		return err
	}

	if err := man.ensureBridge(ctx, conferenceId); err != nil {
		return err
	}

	owner, err := man.Resources.ChannelVar(ctx, channelId, AdhocOwnerVar)
	switch {
	case err != nil:
		helpers.Log(logrus.DebugLevel, fmt.Sprintf("channel %s has no conference owner: %s", channelId, err.Error()))
	case owner != "":
		if err := man.Resources.SetBridgeVar(ctx, conferenceId, AdhocOwnerVar, owner); err != nil {
			helpers.Log(logrus.DebugLevel, fmt.Sprintf("could not set owner on bridge %s: %s", conferenceId, err.Error()))
		}
	}

	if err := man.Resources.AddChannelToBridge(ctx, conferenceId, channelId, true); err != nil {
		if types.IsNotFound(err) {
			helpers.Log(logrus.InfoLevel, fmt.Sprintf("channel %s left the call before being bridged", channelId))
			return nil
		}
		return err
	}
	helpers.Log(logrus.InfoLevel, fmt.Sprintf("channel %s added to bridge %s", channelId, conferenceId))
	return nil
}

// ensureBridge gets or creates the mixing bridge named after the conference.
func (man *ConferenceManager) ensureBridge(ctx context.Context, bridgeId string) error {
	bridges, err := man.Resources.ListBridges(ctx)
	if err != nil {
		return err
	}
	for _, id := range bridges {
		if id == bridgeId {
			helpers.Log(logrus.InfoLevel, fmt.Sprintf("using bridge %s", bridgeId))
			return nil
		}
	}

	createErr := man.Resources.CreateBridge(ctx, bridgeId, MixingBridgeType)
	if createErr == nil {
		helpers.Log(logrus.InfoLevel, fmt.Sprintf("created bridge %s", bridgeId))
		return nil
	}
	// another join may have created it first
	if _, err := man.Resources.BridgeChannels(ctx, bridgeId); err == nil {
		helpers.Log(logrus.InfoLevel, fmt.Sprintf("using bridge %s created concurrently", bridgeId))
		return nil
	}
	return createErr
}

func (man *ConferenceManager) RemoveParticipant(ctx context.Context, conferenceId string, callId string, userUUID string) error {
	if err := man.Resources.HangupChannel(ctx, callId); err != nil {
		if types.IsNotFound(err) {
			helpers.Log(logrus.InfoLevel, fmt.Sprintf("participant %s in adhoc conference %s does not exist", callId, conferenceId))
			return nil
		}
		return err
	}

	if man.Notifier == nil {
		return nil
	}
	if err := man.Notifier.ParticipantLeft(ctx, conferenceId, callId, userUUID); err != nil {
		helpers.Log(logrus.ErrorLevel, fmt.Sprintf("could not notify participant %s left conference %s: %s", callId, conferenceId, err.Error()))
	}
	return nil
}

func (man *ConferenceManager) DeleteAdhocConference(ctx context.Context, conferenceId string) error {
	channels, err := man.Resources.BridgeChannels(ctx, conferenceId)
	if err != nil {
		if types.IsNotFound(err) {
			return nil
		}
		return err
	}

	for _, channelId := range channels {
		err := man.Resources.HangupChannel(ctx, channelId)
		switch {
		case err == nil:
		case types.IsNotFound(err):
			helpers.Log(logrus.DebugLevel, fmt.Sprintf("channel %s already gone from bridge %s", channelId, conferenceId))
		default:
			helpers.Log(logrus.ErrorLevel, fmt.Sprintf("failed to hang up channel %s in bridge %s: %s", channelId, conferenceId, err.Error()))
		}
	}

	if err := man.Resources.DestroyBridge(ctx, conferenceId); err != nil && !types.IsNotFound(err) {
		return err
	}
	helpers.Log(logrus.InfoLevel, fmt.Sprintf("adhoc conference %s deleted", conferenceId))
	return nil
}
