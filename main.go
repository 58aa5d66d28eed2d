package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/CyCoreSystems/ari/v5"
	helpers "github.com/Lineblocs/go-helpers"
	"github.com/sirupsen/logrus"

	"lineblocs.com/conference/api"
	notifiers "lineblocs.com/conference/helpers"
	"lineblocs.com/conference/mngrs"
	"lineblocs.com/conference/utils"
)

// stasis args the conference_adhoc dialplan passes when a leg is ready to
// be bridged
const joinAction = "adhoc_conference"

func createNotifier(settings *utils.Settings) mngrs.Notifier {
	sinks := []notifiers.Notifier{notifiers.LogNotifier{}}
	if settings.RedisAddr != "" {
		helpers.Log(logrus.InfoLevel, "publishing conference events to redis at "+settings.RedisAddr)
		sinks = append(sinks, notifiers.NewRedisNotifier(settings.RedisAddr, settings.RedisPassword, settings.RedisConferenceChannel))
	}
	if settings.KafkaServers != "" {
		producer, err := notifiers.NewKafkaNotifier(settings.KafkaServers, settings.KafkaConferenceTopic)
		if err != nil {
			helpers.Log(logrus.ErrorLevel, "error creating kafka producer: "+err.Error())
		} else {
			sinks = append(sinks, producer)
		}
	}
	return notifiers.NewMultiNotifier(sinks...)
}

func startJoin(ctx context.Context, man *mngrs.ConferenceManager, event *ari.StasisStart) {
	args := event.Args
	if len(args) < 2 || args[0] != joinAction {
		helpers.Log(logrus.DebugLevel, fmt.Sprintf("ignoring stasis start for %s with args %v", event.Channel.ID, args))
		return
	}
	if err := man.JoinBridge(ctx, event.Channel.ID, args[1]); err != nil {
		helpers.Log(logrus.ErrorLevel, fmt.Sprintf("channel %s could not join conference %s: %s", event.Channel.ID, args[1], err.Error()))
	}
}

func main() {
	helpers.InitLogrus(utils.Config("LOG_DESTINATIONS"))
	settings := utils.LoadSettings()
	helpers.Log(logrus.InfoLevel, "Connecting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cl, err := utils.CreateARIConnection(settings)
	if err != nil {
		helpers.Log(logrus.ErrorLevel, "error occured: "+err.Error())
		os.Exit(1)
	}
	defer cl.Close()
	helpers.Log(logrus.InfoLevel, "Connected to ARI")

	amiClient, err := utils.CreateAMIClient(settings)
	if err != nil {
		helpers.Log(logrus.ErrorLevel, "error occured: "+err.Error())
		os.Exit(1)
	}

	rest := api.NewARIRestClient(settings.ARIURL, settings.ARIUsername, settings.ARIPassword)
	man := mngrs.NewConferenceManager(amiClient, utils.NewARIClient(cl, rest), createNotifier(settings))

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	helpers.Log(logrus.InfoLevel, "Listening for conference legs")
	sub := cl.Bus().Subscribe(nil, ari.Events.StasisStart)
	defer sub.Cancel()

	for {
		select {
		case e := <-sub.Events():
			v, ok := e.(*ari.StasisStart)
			if !ok {
				continue
			}
			helpers.Log(logrus.InfoLevel, "Got stasis start for channel "+v.Channel.ID)
			go startJoin(ctx, man, v)
		case <-sigs:
			helpers.Log(logrus.InfoLevel, "shutting down")
			return
		case <-ctx.Done():
			return
		}
	}
}
