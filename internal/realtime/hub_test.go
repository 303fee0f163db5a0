package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub/backend/internal/messaging"
	"github.com/hackhub/backend/internal/models"
)

func drain(c *Client) []WSMessage {
	var out []WSMessage
	for {
		select {
		case m, ok := <-c.send:
			if !ok {
				return out
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func events(msgs []WSMessage, name string) []WSMessage {
	var out []WSMessage
	for _, m := range msgs {
		if m.Event == name {
			out = append(out, m)
		}
	}
	return out
}

func TestHubDeliversByAudience(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	eventID := uuid.New()
	team := uuid.New()

	organizer := NewClient(hub, nil, eventID, messaging.Access{Organizer: true}, nil)
	judge := NewClient(hub, nil, eventID, messaging.Access{Judge: true}, nil)
	member := NewClient(hub, nil, eventID, messaging.Access{Registered: true, TeamID: &team}, nil)
	elsewhere := NewClient(hub, nil, uuid.New(), messaging.Access{Organizer: true}, nil)
	for _, c := range []*Client{organizer, judge, member, elsewhere} {
		hub.Register(c)
	}
	assert.Equal(t, 3, hub.Presence(eventID))
	for _, c := range []*Client{organizer, judge, member, elsewhere} {
		drain(c)
	}

	ctx := context.Background()
	teamCh := &models.Channel{EventID: eventID, Type: models.ChannelTeam, TeamID: &team}
	require.NoError(t, hub.PublishMessage(ctx, teamCh, &models.Message{Body: "team"}))
	judgesCh := &models.Channel{EventID: eventID, Type: models.ChannelJudges}
	require.NoError(t, hub.PublishMessage(ctx, judgesCh, &models.Message{Body: "judges"}))

	assert.Len(t, events(drain(organizer), EventMessage), 2)
	got := events(drain(member), EventMessage)
	require.Len(t, got, 1)
	assert.Contains(t, string(got[0].Data), `"body":"team"`)
	got = events(drain(judge), EventMessage)
	require.Len(t, got, 1)
	assert.Contains(t, string(got[0].Data), `"body":"judges"`)
	assert.Empty(t, drain(elsewhere))
}

func TestHubPresence(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	eventID := uuid.New()
	a := NewClient(hub, nil, eventID, messaging.Access{Registered: true}, nil)
	b := NewClient(hub, nil, eventID, messaging.Access{Registered: true}, nil)

	hub.Register(a)
	hub.Register(b)
	presence := events(drain(a), EventPresence)
	require.Len(t, presence, 2)
	assert.JSONEq(t, `{"count":2}`, string(presence[1].Data))

	hub.Unregister(b)
	presence = events(drain(a), EventPresence)
	require.Len(t, presence, 1)
	assert.JSONEq(t, `{"count":1}`, string(presence[0].Data))

	// b's outbox is closed once it leaves.
	_, ok := <-b.send
	for ok {
		_, ok = <-b.send
	}
	hub.Unregister(a)
	assert.Equal(t, 0, hub.Presence(eventID))
}

type recordingPub struct {
	envs []Envelope
}

func (p *recordingPub) PublishEvent(_ context.Context, _ uuid.UUID, env Envelope) error {
	p.envs = append(p.envs, env)
	return nil
}

func TestHubPublishGoesThroughRedis(t *testing.T) {
	pub := &recordingPub{}
	hub := NewHub(nil, pub, nil)
	eventID := uuid.New()
	c := NewClient(hub, nil, eventID, messaging.Access{Organizer: true}, nil)
	hub.Register(c)
	drain(c)

	ch := &models.Channel{EventID: eventID, Type: models.ChannelGeneral}
	require.NoError(t, hub.PublishMessage(context.Background(), ch, &models.Message{Body: "hi"}))
	require.Len(t, pub.envs, 1)
	assert.Equal(t, models.ChannelGeneral, pub.envs[0].Audience.ChannelType)
	assert.Empty(t, drain(c))

	raw, err := json.Marshal(pub.envs[0])
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	hub.Deliver(eventID, env)
	assert.Len(t, drain(c), 1)
}

type staticResolver struct {
	access messaging.Access
	err    error
}

func (r staticResolver) AccessForEvent(context.Context, uuid.UUID, messaging.Caller) (messaging.Access, error) {
	return r.access, r.err
}

func TestServeWs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil, nil, nil)
	eventID := uuid.New()
	userID := uuid.New()
	auth := func(token string) (messaging.Caller, error) {
		if token != "good" {
			return messaging.Caller{}, assert.AnError
		}
		return messaging.Caller{UserID: userID}, nil
	}

	r := gin.New()
	r.GET("/ws", ServeWs(hub, auth, staticResolver{access: messaging.Access{UserID: userID, Registered: true}}, nil))
	r.GET("/ws-outsider", ServeWs(hub, auth, staticResolver{}, nil))
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ws?event_id=" + eventID.String() + "&token=bad")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/ws-outsider?event_id=" + eventID.String() + "&token=good")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?event_id=" + eventID.String() + "&token=good"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventPresence, msg.Event)
	assert.JSONEq(t, `{"count":1}`, string(msg.Data))

	ch := &models.Channel{EventID: eventID, Type: models.ChannelGeneral}
	require.NoError(t, hub.PublishMessage(context.Background(), ch, &models.Message{Body: "hello"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventMessage, msg.Event)
	assert.Contains(t, string(msg.Data), "hello")
}
