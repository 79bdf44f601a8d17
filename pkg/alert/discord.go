package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// gold
const discordColor = 0xF1C40F

type discordEmbed struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Color       int           `json:"color"`
	Footer      discordFooter `json:"footer"`
	Timestamp   string        `json:"timestamp"`
}

type discordFooter struct {
	Text string `json:"text"`
}

type discordPayload struct {
	Username string         `json:"username,omitempty"`
	Embeds   []discordEmbed `json:"embeds"`
}

// Discord posts one embed per notification to a Discord webhook.
type Discord struct {
	client     *http.Client
	webhookURL string
}

func NewDiscord(webhookURL string) *Discord {
	return &Discord{client: newHTTPClient(), webhookURL: webhookURL}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(ctx context.Context, n *Notification) error {
	var b strings.Builder
	b.WriteString(n.Body)
	if len(n.Top) > 0 {
		b.WriteString("\n")
	}
	for _, st := range n.Top {
		fmt.Fprintf(&b, "\n%d. **%s** %.2f", st.Rank, st.ClubName, st.Score)
	}

	body, err := json.Marshal(discordPayload{
		Username: "clubradar",
		Embeds: []discordEmbed{{
			Title:       "🏆 " + n.Title,
			Description: b.String(),
			Color:       discordColor,
			Footer:      discordFooter{Text: fmt.Sprintf("model %s | run %d", n.Model, n.RunID)},
			Timestamp:   n.GeneratedAt.UTC().Format(time.RFC3339),
		}},
	})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}
	if err := post(ctx, d.client, d.webhookURL, body, nil); err != nil {
		return fmt.Errorf("send discord webhook: %w", err)
	}
	return nil
}
