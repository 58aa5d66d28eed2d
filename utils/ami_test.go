package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/require"

	"lineblocs.com/conference/api"
	"lineblocs.com/conference/types"
)

// scriptedConn answers an action and pushes its events through the
// client's handler before returning, like a fast switch would.
type scriptedConn struct {
	client   *AMIClient
	response map[string]string
	events   []map[string]string
	err      error
	sent     map[string]string
}

func (c *scriptedConn) Action(action map[string]string) (map[string]string, error) {
	c.sent = action
	if c.err != nil {
		return nil, c.err
	}
	for _, event := range c.events {
		event["ActionID"] = action["ActionID"]
		c.client.HandleEvent(event)
	}
	// an event for some other action
	c.client.HandleEvent(map[string]string{"ActionID": "other", "Event": "ConfbridgeList", "Conference": "stray"})
	return c.response, nil
}

func TestAMIClientAction(t *testing.T) {
	t.Parallel()
	type want struct {
		rows      []map[string]string
		transport bool
	}
	tests := []struct {
		name string
		conn *scriptedConn
		want want
	}{
		{
			name: "EventList",
			conn: &scriptedConn{
				response: map[string]string{"Response": "Success", "EventList": "start"},
				events: []map[string]string{
					{"Event": "ConfbridgeListRooms", "Conference": "conf-1"},
					{"Event": "ConfbridgeListRooms", "Conference": "conf-2"},
					{"Event": "ConfbridgeListRoomsComplete", "EventList": "Complete"},
				},
			},
			want: want{rows: []map[string]string{
				{"Event": "ConfbridgeListRooms", "Conference": "conf-1"},
				{"Event": "ConfbridgeListRooms", "Conference": "conf-2"},
			}},
		},
		{
			name: "NoActiveConferences",
			conn: &scriptedConn{response: map[string]string{"Response": "Error", "Message": "No active conferences."}},
			want: want{rows: []map[string]string{}},
		},
		{
			name: "PlainSuccess",
			conn: &scriptedConn{response: map[string]string{"Response": "Success", "Message": "Redirect successful"}},
			want: want{rows: []map[string]string{}},
		},
		{
			name: "Rejected",
			conn: &scriptedConn{response: map[string]string{"Response": "Error", "Message": "Channel specified does not exist"}},
			want: want{transport: true},
		},
		{
			name: "TimedOut",
			conn: &scriptedConn{response: map[string]string{"Error": "Timeout"}},
			want: want{transport: true},
		},
		{
			name: "NoResponse",
			conn: &scriptedConn{response: map[string]string{}},
			want: want{transport: true},
		},
		{
			name: "Unreachable",
			conn: &scriptedConn{err: errors.New("not connected to Asterisk")},
			want: want{transport: true},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			client := newAMIClient(tt.conn, time.Second)
			tt.conn.client = client

			rows, err := client.Action(context.Background(), "ConfbridgeListRooms", map[string]string{"Conference": "conf-1"})
			require.Equal(t, "ConfbridgeListRooms", tt.conn.sent["Action"])
			require.Equal(t, "conf-1", tt.conn.sent["Conference"])
			require.NotEmpty(t, tt.conn.sent["ActionID"])
			if tt.want.transport {
				require.True(t, types.IsTransport(err))
				return
			}
			require.NoError(t, err)
			for _, row := range rows {
				delete(row, "ActionID")
			}
			require.Equal(t, tt.want.rows, rows)
			require.Empty(t, client.pending)
		})
	}
}

func TestAMIClientActionTimeout(t *testing.T) {
	t.Parallel()
	conn := &scriptedConn{response: map[string]string{"Response": "Success", "EventList": "start"}}
	client := newAMIClient(conn, 20*time.Millisecond)
	conn.client = client

	_, err := client.Action(context.Background(), "ConfbridgeList", nil)
	require.True(t, types.IsTransport(err))
}

// codedError stands in for the native client's request errors.
type codedError int

func (e codedError) Error() string { return fmt.Sprintf("Non-2XX response: %d", int(e)) }

func (e codedError) Code() int { return int(e) }

// causedError carries its cause the way the native client's data errors do,
// through Cause() and without Unwrap.
type causedError struct {
	cause error
}

func (e *causedError) Error() string { return "Error getting data: " + e.cause.Error() }

func (e *causedError) Cause() error { return e.cause }

func TestIsARINotFound(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "Nil", err: nil, want: false},
		{name: "StatusError404", err: &api.StatusError{Code: 404}, want: true},
		{name: "StatusError500", err: &api.StatusError{Code: 500}, want: false},
		{name: "Request404", err: codedError(404), want: true},
		{name: "Request500", err: codedError(500), want: false},
		{name: "WrappedDataGet404", err: eris.Wrap(&causedError{cause: codedError(404)}, "failed to get data"), want: true},
		{name: "WrappedDataGet503", err: eris.Wrap(&causedError{cause: codedError(503)}, "failed to get data"), want: false},
		{name: "NotFoundTextOnly", err: errors.New("dialplan context not found"), want: false},
		{name: "Other", err: errors.New("connection reset by peer"), want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsARINotFound(tt.err))
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()
	require.NoError(t, classify(nil, "channel", "c1", "msg"))
	require.True(t, types.IsNotFound(classify(&api.StatusError{Code: 404}, "bridge", "b1", "msg")))
	err := classify(errors.New("boom"), "bridge", "b1", "failed to destroy bridge")
	require.Error(t, err)
	require.False(t, types.IsNotFound(err))
}
