package notify

import (
	"context"
	"fmt"

	"github.com/billbatista/acasinha-office/model"
	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

type channelSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts every message to one channel.
type Discord struct {
	session   channelSender
	channelID string
}

func NewDiscord(token, channelID string) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	return &Discord{session: session, channelID: channelID}, nil
}

func (d *Discord) Notify(ctx context.Context, recipient *uuid.UUID, message, category string, related Related) error {
	content := fmt.Sprintf("**%s** %s", category, message)
	if related.Name != "" {
		content += fmt.Sprintf(" (%s %s)", related.Name, related.ID)
	}
	if _, err := d.session.ChannelMessageSend(d.channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%w: discord: %w", model.ErrDeliveryFailed, err)
	}
	return nil
}
