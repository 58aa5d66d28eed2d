package api

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	helpers "github.com/Lineblocs/go-helpers"
	"github.com/sirupsen/logrus"
)

// StatusError is a non-2xx answer from ARI.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d result: %s", e.Method, e.Path, e.Code, e.Body)
}

func (e *StatusError) NotFound() bool {
	return e.Code == http.StatusNotFound
}

// ARIRestClient covers the ARI resources the typed ARI client has no
// call for.
type ARIRestClient struct {
	BaseURL  string
	Username string
	Password string
	HTTP     *http.Client
}

func NewARIRestClient(baseURL string, username string, password string) *ARIRestClient {
	return &ARIRestClient{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Username: username,
		Password: password,
		HTTP:     &http.Client{Timeout: 10 * time.Second}}
}

func (c *ARIRestClient) SetBridgeVar(ctx context.Context, bridgeId string, name string, value string) error {
	vals := url.Values{}
	vals.Set("variable", name)
	vals.Set("value", value)
	return c.SendPostRequest(ctx, "/bridges/"+url.PathEscape(bridgeId)+"/variable", vals)
}

func (c *ARIRestClient) AddChannelToBridge(ctx context.Context, bridgeId string, channelId string, inhibitConnectedLine bool) error {
	vals := url.Values{}
	vals.Set("channel", channelId)
	if inhibitConnectedLine {
		vals.Set("inhibitConnectedLineUpdates", "true")
	}
	return c.SendPostRequest(ctx, "/bridges/"+url.PathEscape(bridgeId)+"/addChannel", vals)
}

func (c *ARIRestClient) SendPostRequest(ctx context.Context, path string, vals url.Values) error {
	fullUrl := c.BaseURL + path
	if len(vals) > 0 {
		fullUrl = fullUrl + "?" + vals.Encode()
	}
	helpers.Log(logrus.DebugLevel, "URL:> "+fullUrl)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullUrl, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.Username, c.Password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	status := resp.StatusCode
	if !(status >= 200 && status <= 299) {
		return &StatusError{
			Method: http.MethodPost,
			Path:   path,
			Code:   status,
			Body:   string(body)}
	}
	return nil
}
