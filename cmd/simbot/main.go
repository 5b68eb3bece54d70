// simbot is a simulated robot client for exercising the gateway: it keeps a
// persistent websocket connection with reconnect backoff, heartbeats on an
// interval and acknowledges every command it receives.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"robot-gateway/network"
)

const (
	maxDelay      = 30 * time.Second
	backoffFactor = 1.5
)

var logger zerolog.Logger

func main() {
	addr := flag.String("addr", "ws://127.0.0.1:9300/ws/robot", "Gateway websocket URL")
	deviceID := flag.String("device", "bot_sim_01", "Device id to log in as")
	token := flag.String("token", "", "Device JWT")
	heartbeat := flag.Duration("heartbeat", 20*time.Second, "Heartbeat interval")
	ackDelay := flag.Duration("ack-delay", 500*time.Millisecond, "Simulated command execution time")
	maxRetries := flag.Int("max-retries", 10, "Maximum reconnect attempts")
	flag.Parse()

	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	if *token == "" {
		logger.Fatal().Msg("a device token is required (-token)")
	}

	retryCount := 0
	delay := time.Second
	for {
		conn, err := connect(*addr, *deviceID, *token)
		if err != nil {
			retryCount++
			if retryCount >= *maxRetries {
				logger.Fatal().Err(err).Int("attempts", retryCount).Msg("giving up on gateway")
			}
			logger.Warn().Err(err).Dur("retry_in", delay).Msg("connect failed")
			time.Sleep(delay)
			delay = time.Duration(float64(delay) * backoffFactor)
			if delay > maxDelay {
				delay = maxDelay
			}
			continue
		}

		retryCount = 0
		delay = time.Second
		logger.Info().Str("device", *deviceID).Msg("connected to gateway")

		runSession(conn, *heartbeat, *ackDelay)
		_ = conn.Close()
		logger.Warn().Msg("session ended, reconnecting")
		time.Sleep(2 * time.Second)
	}
}

func connect(addr, deviceID, token string) (*network.WSConn, error) {
	conn, err := network.Dial(addr)
	if err != nil {
		return nil, err
	}
	if err := conn.Login(deviceID, token); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("login: %w", err)
	}
	return conn, nil
}

// runSession drives one connection until it breaks: a heartbeat ticker plus
// the read loop acking inbound commands.
func runSession(conn *network.WSConn, heartbeat, ackDelay time.Duration) {
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := conn.SendFrame(&network.Frame{Type: network.FrameHeartbeat}); err != nil {
					logger.Warn().Err(err).Msg("heartbeat send failed")
					return
				}
			}
		}
	}()

	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			logger.Warn().Err(err).Msg("read failed")
			return
		}
		if frame.Type != network.FrameCommand {
			logger.Debug().Str("type", string(frame.Type)).Msg("ignoring frame")
			continue
		}
		logger.Info().Str("command", frame.CommandID).Str("type", frame.Command).
			Int("code", frame.Code).Msg("command received")

		time.Sleep(ackDelay)
		result, _ := json.Marshal(map[string]any{"executed": frame.Command, "at": time.Now().Unix()})
		ack := &network.Frame{
			Type:      network.FrameAck,
			CommandID: frame.CommandID,
			OK:        true,
			Result:    result,
		}
		if err := conn.SendFrame(ack); err != nil {
			logger.Warn().Err(err).Str("command", frame.CommandID).Msg("ack send failed")
			return
		}
	}
}
