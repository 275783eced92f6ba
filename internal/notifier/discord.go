package notifier

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/ruadoceu33/rua-do-ceu-api/internal/models"
)

type Notifier interface {
	NotifySession(location models.Location, presentCount, absentCount int) error
	NotifyFullyDistributed(donation models.Donation) error
}

type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordNotifier(session *discordgo.Session, channelID string) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}
}

func (n *DiscordNotifier) NotifySession(location models.Location, presentCount, absentCount int) error {
	message := fmt.Sprintf("📋 **Roll call recorded**\n**Location:** %s\n**Present:** %d\n**Absent:** %d",
		location.Name,
		presentCount,
		absentCount,
	)
	return n.send(message)
}

func (n *DiscordNotifier) NotifyFullyDistributed(donation models.Donation) error {
	quantityStr := ""
	if donation.Quantity != nil {
		quantityStr = fmt.Sprintf("\n**Quantity:** %d %s", *donation.Quantity, donation.Unit)
	}

	message := fmt.Sprintf("📦 **Donation fully distributed**\n**Donor:** %s\n**Category:** %s\n**Description:** %s%s",
		donation.Donor,
		donation.Category,
		donation.Description,
		quantityStr,
	)
	return n.send(message)
}

func (n *DiscordNotifier) send(message string) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	_, err := n.session.ChannelMessageSend(n.channelID, message)
	if err != nil {
		log.Printf("Failed to send discord message: %v", err)
		return err
	}

	return nil
}
