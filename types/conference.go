package types

import (
	"strconv"
	"strings"
)

type Conference struct {
	Id           string        `json:"conference_id"`
	Locked       bool          `json:"locked"`
	Marked       bool          `json:"marked"`
	Muted        bool          `json:"muted"`
	Parties      int           `json:"parties"`
	Participants []Participant `json:"participants,omitempty"`
}

type Participant struct {
	CallerIdName string `json:"callerid_name"`
	CallerIdNum  string `json:"callerid_num"`
	Muted        bool   `json:"muted"`
	AnsweredTime int    `json:"answered_time"`
	Admin        bool   `json:"admin"`
	Language     string `json:"language"`
	LinkedId     string `json:"linkedid"`
	Channel      string `json:"channel"`
}

// CallPair is a participant leg and the leg it was talking to when the
// conference was requested.
type CallPair struct {
	InitiatorCallId string `json:"initiator_call_id"`
	CallId          string `json:"call_id"`
}

// NewConference maps one ConfbridgeListRooms row. ok is false for rows
// that carry no conference name.
func NewConference(row map[string]string) (conf Conference, ok bool) {
	id := row["Conference"]
	if id == "" {
		return Conference{}, false
	}
	return Conference{
		Id:      id,
		Locked:  parseFlag(row["Locked"]),
		Marked:  parseFlag(row["Marked"]),
		Muted:   parseFlag(row["Muted"]),
		Parties: parseCount(row["Parties"])}, true
}

// NewParticipant maps one ConfbridgeList row.
func NewParticipant(row map[string]string) Participant {
	linkedId := row["Linkedid"]
	if linkedId == "" {
		linkedId = row["LinkedID"]
	}
	return Participant{
		CallerIdName: row["CallerIDName"],
		CallerIdNum:  row["CallerIDNum"],
		Muted:        parseFlag(row["Muted"]),
		AnsweredTime: parseCount(row["AnsweredTime"]),
		Admin:        parseFlag(row["Admin"]),
		Language:     row["Language"],
		LinkedId:     linkedId,
		Channel:      row["Channel"]}
}

func parseFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "true", "1", "on":
		return true
	}
	return false
}

func parseCount(value string) int {
	count, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return count
}
