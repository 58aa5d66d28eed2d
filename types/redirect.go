package types

import "strconv"

// Redirect is an AMI Redirect action, optionally moving a second channel
// along with the first.
type Redirect struct {
	Channel       string
	Context       string
	Exten         string
	Priority      int
	ExtraChannel  string
	ExtraContext  string
	ExtraExten    string
	ExtraPriority int
}

func (r Redirect) Params() map[string]string {
	priority := r.Priority
	if priority <= 0 {
		priority = 1
	}
	params := map[string]string{
		"Channel":  r.Channel,
		"Context":  r.Context,
		"Exten":    r.Exten,
		"Priority": strconv.Itoa(priority)}

	if r.ExtraChannel != "" {
		params["ExtraChannel"] = r.ExtraChannel
	}
	if r.ExtraContext != "" {
		params["ExtraContext"] = r.ExtraContext
	}
	if r.ExtraExten != "" {
		extraPriority := r.ExtraPriority
		if extraPriority <= 0 {
			extraPriority = 1
		}
		params["ExtraExten"] = r.ExtraExten
		params["ExtraPriority"] = strconv.Itoa(extraPriority)
	}
	return params
}
