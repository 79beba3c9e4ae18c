package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// ChannelSender posts a message to a channel. *discordgo.Session implements it.
type ChannelSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts requests that need staff action to an admin channel
type DiscordNotifier struct {
	session   ChannelSender
	channelID string
}

func NewDiscordNotifier(session ChannelSender, channelID string) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}
}

// NewDiscordSession creates a REST-only bot session
func NewDiscordSession(botToken string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return session, nil
}

func (d *DiscordNotifier) Notify(ctx context.Context, n Notification) error {
	if !n.Kind.ForStaff() {
		return nil
	}
	if d.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if d.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	if _, err := d.session.ChannelMessageSend(d.channelID, discordMessage(n)); err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	return nil
}

func discordMessage(n Notification) string {
	title := "📝 **Approval requested**"
	if n.Kind == KindCancellationRequested {
		title = "⚠️ **Cancellation requested**"
	}

	volunteer := n.Booking.UserID
	if n.User != nil && n.User.FullName != "" {
		volunteer = fmt.Sprintf("%s (%s)", n.User.FullName, n.User.DNI)
	}

	return fmt.Sprintf("%s\n**Event:** %s\n**Volunteer:** %s\n**Role:** %s\n**Shift:** %s %s\n**Booking:** `%s`",
		title,
		n.Event.Name,
		volunteer,
		n.Role.Name,
		n.Shift.Date,
		n.Shift.TimeSlot,
		n.Booking.ID,
	)
}
