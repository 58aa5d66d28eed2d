package utils

import (
	"context"
	"errors"
	"net/http"

	"github.com/CyCoreSystems/ari/v5"
	"github.com/CyCoreSystems/ari/v5/client/native"
	helpers "github.com/Lineblocs/go-helpers"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"lineblocs.com/conference/api"
	"lineblocs.com/conference/types"
)

func CreateARIConnection(settings *Settings) (ari.Client, error) {
	cl, err := native.Connect(&native.Options{
		Application:  settings.ARIApplication,
		Username:     settings.ARIUsername,
		Password:     settings.ARIPassword,
		URL:          settings.ARIURL,
		WebsocketURL: settings.ARIWSURL})
	if err != nil {
		helpers.Log(logrus.ErrorLevel, "Failed to build native ARI client. error: "+err.Error())
		return nil, err
	}
	return cl, nil
}

// IsARINotFound reports whether an ARI call failed because the resource
// does not exist.
func IsARINotFound(err error) bool {
	if err == nil {
		return false
	}
	var nf interface{ NotFound() bool }
	if errors.As(err, &nf) {
		return nf.NotFound()
	}
	return native.CodeFromError(rootCause(err)) == http.StatusNotFound
}

// rootCause follows eris wrapping and the Cause() chain the native client
// puts around request errors.
func rootCause(err error) error {
	for {
		err = eris.Cause(err)
		c, ok := err.(interface{ Cause() error })
		if !ok || c.Cause() == nil {
			return err
		}
		err = c.Cause()
	}
}

// ARIClient exposes channels and bridges by id.
type ARIClient struct {
	Client ari.Client
	Rest   *api.ARIRestClient
}

func NewARIClient(cl ari.Client, rest *api.ARIRestClient) *ARIClient {
	return &ARIClient{Client: cl, Rest: rest}
}

func classify(err error, kind string, id string, msg string) error {
	if err == nil {
		return nil
	}
	if IsARINotFound(err) {
		return &types.NotFoundError{Kind: kind, Id: id, Err: err}
	}
	return eris.Wrap(err, msg)
}

func channelKey(id string) *ari.Key {
	return ari.NewKey(ari.ChannelKey, id)
}

func bridgeKey(id string) *ari.Key {
	return ari.NewKey(ari.BridgeKey, id)
}

func (c *ARIClient) ChannelName(ctx context.Context, channelId string) (string, error) {
	data, err := c.Client.Channel().Data(channelKey(channelId))
	if err != nil {
		return "", classify(err, "channel", channelId, "failed to get channel")
	}
	return data.Name, nil
}

func (c *ARIClient) ChannelVar(ctx context.Context, channelId string, name string) (string, error) {
	value, err := c.Client.Channel().GetVariable(channelKey(channelId), name)
	if err != nil {
		return "", classify(err, "channel variable", channelId+"/"+name, "failed to get channel variable")
	}
	return value, nil
}

func (c *ARIClient) SetChannelVar(ctx context.Context, channelId string, name string, value string) error {
	err := c.Client.Channel().SetVariable(channelKey(channelId), name, value)
	return classify(err, "channel", channelId, "failed to set channel variable")
}

func (c *ARIClient) AnswerChannel(ctx context.Context, channelId string) error {
	err := c.Client.Channel().Answer(channelKey(channelId))
	return classify(err, "channel", channelId, "failed to answer channel")
}

func (c *ARIClient) HangupChannel(ctx context.Context, channelId string) error {
	err := c.Client.Channel().Hangup(channelKey(channelId), "normal")
	return classify(err, "channel", channelId, "failed to hang up channel")
}

func (c *ARIClient) ListBridges(ctx context.Context) ([]string, error) {
	keys, err := c.Client.Bridge().List(nil)
	if err != nil {
		return nil, eris.Wrap(err, "failed to list bridges")
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, key.ID)
	}
	return ids, nil
}

func (c *ARIClient) BridgeChannels(ctx context.Context, bridgeId string) ([]string, error) {
	data, err := c.Client.Bridge().Data(bridgeKey(bridgeId))
	if err != nil {
		return nil, classify(err, "bridge", bridgeId, "failed to get bridge")
	}
	return data.ChannelIDs, nil
}

func (c *ARIClient) CreateBridge(ctx context.Context, bridgeId string, bridgeType string) error {
	_, err := c.Client.Bridge().Create(bridgeKey(bridgeId), bridgeType, bridgeId)
	if err != nil {
		return eris.Wrap(err, "failed to create bridge")
	}
	return nil
}

func (c *ARIClient) SetBridgeVar(ctx context.Context, bridgeId string, name string, value string) error {
	err := c.Rest.SetBridgeVar(ctx, bridgeId, name, value)
	return classify(err, "bridge", bridgeId, "failed to set bridge variable")
}

func (c *ARIClient) AddChannelToBridge(ctx context.Context, bridgeId string, channelId string, inhibitConnectedLine bool) error {
	err := c.Rest.AddChannelToBridge(ctx, bridgeId, channelId, inhibitConnectedLine)
	return classify(err, "channel", channelId, "failed to add channel to bridge")
}

func (c *ARIClient) DestroyBridge(ctx context.Context, bridgeId string) error {
	err := c.Client.Bridge().Delete(bridgeKey(bridgeId))
	return classify(err, "bridge", bridgeId, "failed to destroy bridge")
}
