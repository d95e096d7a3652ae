package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/juju/errors"
)

// maxBatchLines is how many proposals a batch alert lists.
const maxBatchLines = 3

// Message is the rendered form of one alert.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag"`
}

// FormatAlert renders one proposal as a named alert and several as a counted summary.
func FormatAlert(items []Alert) Message {
	if len(items) == 1 {
		a := items[0]
		return Message{
			Title: fmt.Sprintf("New proposal in %s", a.DAOName),
			Body:  a.ProposalName,
			Tag:   "dao-radar-" + a.ProposalID,
		}
	}
	lines := make([]string, 0, maxBatchLines)
	for i, a := range items {
		if i == maxBatchLines {
			break
		}
		lines = append(lines, fmt.Sprintf("%s: %s", a.DAOName, a.ProposalName))
	}
	return Message{
		Title: fmt.Sprintf("%d new active proposals", len(items)),
		Body:  strings.Join(lines, "\n"),
		Tag:   "dao-radar-batch",
	}
}

// Notification is what an Alerter delivers.
type Notification struct {
	Wallet  string
	Message Message
	Items   []Alert
}

type Alerter interface {
	Alert(ctx context.Context, n Notification) error
}

// LogAlerter writes alerts to the package logger.
type LogAlerter struct{}

func (LogAlerter) Alert(_ context.Context, n Notification) error {
	logger.Infof("alert for %s: %s (%d new)", n.Wallet, n.Message.Title, len(n.Items))
	return nil
}

// ChannelSender is the discordgo call the Discord alerter uses.
type ChannelSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordAlerter posts alerts to one channel.
type DiscordAlerter struct {
	session   ChannelSender
	channelID string
	appURL    string
}

func NewDiscordAlerter(session ChannelSender, channelID, appURL string) *DiscordAlerter {
	if appURL == "" {
		appURL = "https://app.realms.today"
	}
	return &DiscordAlerter{session: session, channelID: channelID, appURL: strings.TrimRight(appURL, "/")}
}

// NewDiscordSession opens a bot session for the alerter.
func NewDiscordSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, errors.Annotate(err, "discord session")
	}
	return s, nil
}

func (d *DiscordAlerter) Alert(_ context.Context, n Notification) error {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n%s", n.Message.Title, n.Message.Body)
	for i, a := range n.Items {
		if i == maxBatchLines {
			break
		}
		// Angle brackets stop Discord from unfurling every link.
		fmt.Fprintf(&b, "\n<%s/dao/%s/proposal/%s>", d.appURL, a.RealmID, a.ProposalID)
	}
	_, err := d.session.ChannelMessageSend(d.channelID, b.String())
	return errors.Annotate(err, "discord alert")
}

// MultiAlerter fans out to several alerters and joins their failures.
type MultiAlerter []Alerter

func (m MultiAlerter) Alert(ctx context.Context, n Notification) error {
	var failed []string
	for _, a := range m {
		if err := a.Alert(ctx, n); err != nil {
			failed = append(failed, err.Error())
		}
	}
	if len(failed) > 0 {
		return errors.Errorf("%d alerters failed: %s", len(failed), strings.Join(failed, "; "))
	}
	return nil
}
