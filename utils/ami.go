package utils

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	helpers "github.com/Lineblocs/go-helpers"
	"github.com/google/uuid"
	"github.com/ivahaev/amigo"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"lineblocs.com/conference/types"
)

// amiConn is the part of *amigo.Amigo the client needs.
type amiConn interface {
	Action(action map[string]string) (map[string]string, error)
}

// AMIClient sends actions over AMI and gathers the event lists they
// trigger, matched by ActionID.
type AMIClient struct {
	conn    amiConn
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*eventList
}

type eventList struct {
	rows []map[string]string
	done chan struct{}
	once sync.Once
}

func (l *eventList) finish() {
	l.once.Do(func() { close(l.done) })
}

// emptyListMessages are Error responses Asterisk sends instead of an empty
// event list.
var emptyListMessages = []string{
	"no active conferences",
	"no conference by that name found",
}

func CreateAMIClient(settings *Settings) (*AMIClient, error) {
	helpers.Log(logrus.InfoLevel, fmt.Sprintf("logging into AMI host at %s", settings.AMIHost))
	a := amigo.New(&amigo.Settings{
		Username: settings.AMIUser,
		Password: settings.AMIPass,
		Host:     settings.AMIHost,
	})

	client := newAMIClient(a, settings.AMIActionTimeout)

	a.On("connect", func(message string) {
		helpers.Log(logrus.InfoLevel, "connected to AMI. "+message)
	})
	a.On("error", func(message string) {
		helpers.Log(logrus.ErrorLevel, "AMI error occured: "+message)
	})
	if err := a.RegisterDefaultHandler(client.HandleEvent); err != nil {
		return nil, eris.Wrap(err, "failed to register AMI event handler")
	}

	a.Connect()
	return client, nil
}

func newAMIClient(conn amiConn, timeout time.Duration) *AMIClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AMIClient{
		conn:    conn,
		timeout: timeout,
		pending: make(map[string]*eventList)}
}

// HandleEvent routes an AMI event to the action waiting for it.
func (c *AMIClient) HandleEvent(event map[string]string) {
	actionId := event["ActionID"]
	if actionId == "" {
		return
	}
	c.mu.Lock()
	list, ok := c.pending[actionId]
	c.mu.Unlock()
	if !ok {
		return
	}

	if event["EventList"] == "Complete" || strings.HasSuffix(event["Event"], "Complete") {
		list.finish()
		return
	}
	c.mu.Lock()
	list.rows = append(list.rows, event)
	c.mu.Unlock()
}

func (c *AMIClient) Action(ctx context.Context, name string, params map[string]string) ([]map[string]string, error) {
	actionId := uuid.New().String()
	request := map[string]string{
		"Action":   name,
		"ActionID": actionId}
	for k, v := range params {
		request[k] = v
	}

	list := &eventList{done: make(chan struct{})}
	c.mu.Lock()
	c.pending[actionId] = list
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, actionId)
		c.mu.Unlock()
	}()

	resp, err := c.conn.Action(request)
	if err != nil {
		return nil, &types.TransportError{Action: name, Params: params, Err: eris.Wrap(err, "ami action failed")}
	}

	// amigo reports its own timeouts as {"Error": "Timeout"} with a nil error
	if resp["Error"] != "" || resp["Response"] == "" {
		return nil, &types.TransportError{Action: name, Params: params, Err: eris.Errorf("no ami response: %s", resp["Error"])}
	}

	if strings.EqualFold(resp["Response"], "Error") {
		message := strings.ToLower(strings.TrimSpace(resp["Message"]))
		for _, empty := range emptyListMessages {
			if strings.HasPrefix(message, empty) {
				return []map[string]string{}, nil
			}
		}
		return nil, &types.TransportError{Action: name, Params: params, Err: eris.New(resp["Message"])}
	}

	if !strings.EqualFold(resp["EventList"], "start") {
		return []map[string]string{}, nil
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case <-list.done:
	case <-ctx.Done():
		return nil, &types.TransportError{Action: name, Params: params, Err: eris.Wrap(ctx.Err(), "waiting for ami events")}
	case <-timer.C:
		return nil, &types.TransportError{Action: name, Params: params, Err: eris.New("timed out waiting for ami events")}
	}

	c.mu.Lock()
	rows := list.rows
	c.mu.Unlock()
	if rows == nil {
		rows = []map[string]string{}
	}
	return rows, nil
}
