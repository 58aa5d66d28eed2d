package mngrs

import (
	"context"
	"errors"
	"sort"
	"sync"

	"lineblocs.com/conference/types"
)

type recordedAction struct {
	name   string
	params map[string]string
}

type fakeSignaling struct {
	mu       sync.Mutex
	rooms    []map[string]string
	members  []map[string]string
	err      error
	failFor  map[string]error
	recorded []recordedAction
}

func (f *fakeSignaling) Action(ctx context.Context, name string, params map[string]string) ([]map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, recordedAction{name: name, params: params})
	if f.err != nil {
		return nil, &types.TransportError{Action: name, Params: params, Err: f.err}
	}
	if err, ok := f.failFor[params["Channel"]]; ok && name == redirectAction {
		return nil, &types.TransportError{Action: name, Params: params, Err: err}
	}
	switch name {
	case listRoomsAction:
		return f.rooms, nil
	case listMembersAction:
		return f.members, nil
	}
	return []map[string]string{}, nil
}

func (f *fakeSignaling) redirects() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]string, 0)
	for _, action := range f.recorded {
		if action.name == redirectAction {
			out = append(out, action.params)
		}
	}
	return out
}

type fakeResources struct {
	mu         sync.Mutex
	channels   map[string]string
	channelVar map[string]map[string]string
	bridges    map[string][]string
	bridgeVar  map[string]map[string]string
	answered   []string
	hungup     []string
	created    []string
	destroyed  []string
	addOptions []bool
	// unlisted bridges exist but are missing from ListBridges, as when a
	// concurrent join created them after the listing
	unlisted map[string]bool
	listErr  error
}

func newFakeResources() *fakeResources {
	return &fakeResources{
		channels:   make(map[string]string),
		channelVar: make(map[string]map[string]string),
		bridges:    make(map[string][]string),
		bridgeVar:  make(map[string]map[string]string),
		unlisted:   make(map[string]bool),
	}
}

func notFound(kind string, id string) error {
	return &types.NotFoundError{Kind: kind, Id: id}
}

func (f *fakeResources) ChannelName(ctx context.Context, channelId string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.channels[channelId]
	if !ok {
		return "", notFound("channel", channelId)
	}
	return name, nil
}

func (f *fakeResources) ChannelVar(ctx context.Context, channelId string, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.channelVar[channelId][name]
	if !ok {
		return "", notFound("channel variable", channelId+"/"+name)
	}
	return value, nil
}

func (f *fakeResources) SetChannelVar(ctx context.Context, channelId string, name string, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelId]; !ok {
		return notFound("channel", channelId)
	}
	if f.channelVar[channelId] == nil {
		f.channelVar[channelId] = make(map[string]string)
	}
	f.channelVar[channelId][name] = value
	return nil
}

func (f *fakeResources) AnswerChannel(ctx context.Context, channelId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelId]; !ok {
		return notFound("channel", channelId)
	}
	f.answered = append(f.answered, channelId)
	return nil
}

func (f *fakeResources) HangupChannel(ctx context.Context, channelId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelId]; !ok {
		return notFound("channel", channelId)
	}
	delete(f.channels, channelId)
	f.hungup = append(f.hungup, channelId)
	return nil
}

func (f *fakeResources) ListBridges(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	ids := make([]string, 0, len(f.bridges))
	for id := range f.bridges {
		if !f.unlisted[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeResources) BridgeChannels(ctx context.Context, bridgeId string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	channels, ok := f.bridges[bridgeId]
	if !ok {
		return nil, notFound("bridge", bridgeId)
	}
	return append([]string(nil), channels...), nil
}

func (f *fakeResources) CreateBridge(ctx context.Context, bridgeId string, bridgeType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bridges[bridgeId]; ok {
		return errors.New("bridge with id already exists")
	}
	f.bridges[bridgeId] = []string{}
	f.created = append(f.created, bridgeId)
	return nil
}

func (f *fakeResources) SetBridgeVar(ctx context.Context, bridgeId string, name string, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bridges[bridgeId]; !ok {
		return notFound("bridge", bridgeId)
	}
	if f.bridgeVar[bridgeId] == nil {
		f.bridgeVar[bridgeId] = make(map[string]string)
	}
	f.bridgeVar[bridgeId][name] = value
	return nil
}

func (f *fakeResources) AddChannelToBridge(ctx context.Context, bridgeId string, channelId string, inhibitConnectedLine bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bridges[bridgeId]; !ok {
		return notFound("bridge", bridgeId)
	}
	if _, ok := f.channels[channelId]; !ok {
		return notFound("channel", channelId)
	}
	f.bridges[bridgeId] = append(f.bridges[bridgeId], channelId)
	f.addOptions = append(f.addOptions, inhibitConnectedLine)
	return nil
}

func (f *fakeResources) DestroyBridge(ctx context.Context, bridgeId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bridges[bridgeId]; !ok {
		return notFound("bridge", bridgeId)
	}
	delete(f.bridges, bridgeId)
	f.destroyed = append(f.destroyed, bridgeId)
	return nil
}

type participantLeft struct {
	conferenceId string
	callId       string
	userUUID     string
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []participantLeft
	err    error
}

func (f *fakeNotifier) ParticipantLeft(ctx context.Context, conferenceId string, callId string, userUUID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, participantLeft{conferenceId, callId, userUUID})
	return f.err
}

func newTestManager(signaling *fakeSignaling, resources *fakeResources, notifier *fakeNotifier) *ConferenceManager {
	man := NewConferenceManager(signaling, resources, notifier)
	man.NewId = func() string {
		return "6f1c2a4e-3b1d-4c55-9a0e-2f7d8b9c0a11"
	}
	return man
}
