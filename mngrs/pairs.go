package mngrs

import (
	"context"
	"fmt"

	helpers "github.com/Lineblocs/go-helpers"
	"github.com/sirupsen/logrus"

	"lineblocs.com/conference/types"
)

type pairRole int

const (
	// ownerPair is the first pair of a new conference. Its initiator lands in
	// the conference alongside the participant.
	ownerPair pairRole = iota
	// dependentPair initiators are parked on the teardown extension so their
	// hangup ends the dependent leg.
	dependentPair
)

func roleForPair(index int) pairRole {
	if index == 0 {
		return ownerPair
	}
	return dependentPair
}

func (r pairRole) String() string {
	if r == ownerPair {
		return "owner"
	}
	return "dependent"
}

func (r pairRole) redirect(conferenceId string, channelName string, initiatorName string) types.Redirect {
	redirect := types.Redirect{
		Channel:      channelName,
		Context:      AdhocContext,
		Exten:        conferenceId,
		Priority:     1,
		ExtraChannel: initiatorName}
	if r == dependentPair {
		redirect.ExtraContext = AdhocContext
		redirect.ExtraExten = AdhocHangupExten
		redirect.ExtraPriority = 1
	}
	return redirect
}

func (man *ConferenceManager) findCallPairs(ctx context.Context, participantCallIds []string) ([]types.CallPair, error) {
	pairs := make([]types.CallPair, 0, len(participantCallIds))
	for _, callId := range participantCallIds {
		initiatorCallId, err := man.connectedChannel(ctx, callId)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, types.CallPair{InitiatorCallId: initiatorCallId, CallId: callId})
	}
	helpers.Log(logrus.DebugLevel, fmt.Sprintf("call pairs: %+v", pairs))
	return pairs, nil
}

// connectedChannel returns the only channel sharing a bridge with callId.
func (man *ConferenceManager) connectedChannel(ctx context.Context, callId string) (string, error) {
	bridges, err := man.Resources.ListBridges(ctx)
	if err != nil {
		return "", err
	}

	peers := make(map[string]struct{})
	for _, bridgeId := range bridges {
		channels, err := man.Resources.BridgeChannels(ctx, bridgeId)
		if err != nil {
			if types.IsNotFound(err) {
				continue
			}
			return "", err
		}
		if !contains(channels, callId) {
			continue
		}
		for _, channelId := range channels {
			if channelId != callId {
				peers[channelId] = struct{}{}
			}
		}
	}

	if len(peers) != 1 {
		return "", &types.LinkageError{CallId: callId, Peers: len(peers)}
	}
	for peer := range peers {
		return peer, nil
	}
	return "", nil
}

func contains(items []string, item string) bool {
	for _, candidate := range items {
		if candidate == item {
			return true
		}
	}
	return false
}
