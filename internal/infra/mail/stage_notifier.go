package mail

import (
	"log"

	"github.com/xavierca1/ligue-engagement/internal/entity"
	"github.com/xavierca1/ligue-engagement/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-engagement/internal/infra/integration/kommo"
	"github.com/xavierca1/ligue-engagement/internal/infra/integration/whatsapp"
	"github.com/xavierca1/ligue-engagement/internal/usecase"
)

// StageNotifier entrega notificações de mudança de estágio via email e
// WhatsApp. Os dados de contato vêm do CRM (fonte da verdade) — aqui não
// guardamos email nem telefone do lead.
type StageNotifier struct {
	Contacts *kommo.Client
	Email    *EmailSender
	WhatsApp *whatsapp.Client
}

func NewStageNotifier(contacts *kommo.Client, email *EmailSender, wa *whatsapp.Client) *StageNotifier {
	return &StageNotifier{
		Contacts: contacts,
		Email:    email,
		WhatsApp: wa,
	}
}

// HandleStageChange satisfaz queue.StageChangeHandler.
func (n *StageNotifier) HandleStageChange(notification usecase.StageChangeNotification) error {
	// Só avança de estágio gera comunicação; regressão fica em silêncio
	if notification.ToStage == string(entity.StageUser) {
		return nil
	}

	contact, err := n.Contacts.FindContact(notification.CRMRef)
	if err != nil {
		middleware.RecordIntegrationError("kommo")
		log.Printf("⚠️ StageNotifier: sem contato para lead %s: %v", notification.LeadID, err)
		return err
	}

	if n.Email != nil && contact.Email != "" {
		if err := n.Email.SendStageChanged(contact.Email, contact.Name, notification.FromStage, notification.ToStage); err != nil {
			middleware.RecordIntegrationError("smtp")
			log.Printf("⚠️ StageNotifier: email falhou para %s: %v", contact.Email, err)
		}
	}

	if n.WhatsApp != nil && contact.Phone != "" {
		if err := n.WhatsApp.SendStageNotification(contact.Phone, contact.Name, notification.ToStage); err != nil {
			middleware.RecordIntegrationError("whatsapp")
			log.Printf("⚠️ StageNotifier: whatsapp falhou para %s: %v", contact.Phone, err)
		}
	}

	return nil
}
