package kommo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/xavierca1/ligue-engagement/internal/usecase"
)

// Client fala com o CRM (Kommo). O CRM é a fonte da verdade dos dados de
// contato: aqui só lemos contato e anotamos mudanças de estágio no lead —
// nunca criamos nem apagamos leads no CRM.
type Client struct {
	apiToken string
	baseURL  string
}

func NewClient() *Client {
	return &Client{
		apiToken: os.Getenv("KOMMO_API_TOKEN"),
		baseURL:  "https://liguemedicina.kommo.com/api/v4",
	}
}

// FindContact busca o contato vinculado ao lead do CRM (crm_ref).
func (c *Client) FindContact(crmRef string) (*Contact, error) {
	if c.apiToken == "" {
		log.Println("⚠️ Kommo: API_TOKEN não configurado")
		return nil, fmt.Errorf("kommo não configurado")
	}

	url := fmt.Sprintf("%s/leads/%s?with=contacts", c.baseURL, crmRef)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	c.addAuthHeaders(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("erro ao buscar lead no CRM: %d - %s", resp.StatusCode, string(body))
	}

	var result struct {
		Embedded struct {
			Contacts []struct {
				ID int `json:"id"`
			} `json:"contacts"`
		} `json:"_embedded"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	if len(result.Embedded.Contacts) == 0 {
		return nil, fmt.Errorf("lead %s sem contato no CRM", crmRef)
	}

	return c.fetchContact(result.Embedded.Contacts[0].ID)
}

func (c *Client) fetchContact(contactID int) (*Contact, error) {
	url := fmt.Sprintf("%s/contacts/%d", c.baseURL, contactID)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	c.addAuthHeaders(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("erro ao buscar contato: %d", resp.StatusCode)
	}

	var raw struct {
		ID                 int    `json:"id"`
		Name               string `json:"name"`
		CustomFieldsValues []struct {
			FieldCode string `json:"field_code"`
			Values    []struct {
				Value string `json:"value"`
			} `json:"values"`
		} `json:"custom_fields_values"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	contact := &Contact{ID: raw.ID, Name: raw.Name}
	for _, field := range raw.CustomFieldsValues {
		if len(field.Values) == 0 {
			continue
		}
		switch field.FieldCode {
		case "EMAIL":
			contact.Email = field.Values[0].Value
		case "PHONE":
			contact.Phone = field.Values[0].Value
		}
	}

	return contact, nil
}

// HandleStageChange anota a mudança de estágio no lead do CRM (nota de texto).
// Satisfaz queue.StageChangeHandler.
func (c *Client) HandleStageChange(notification usecase.StageChangeNotification) error {
	if c.apiToken == "" {
		log.Println("⚠️ Kommo: API_TOKEN não configurado")
		return fmt.Errorf("kommo não configurado")
	}
	if notification.CRMRef == "" {
		return nil
	}

	text := fmt.Sprintf("Funil de engajamento: %s -> %s (%s)",
		notification.FromStage, notification.ToStage, notification.Reason)
	if notification.Forced {
		text += " [override manual]"
	}

	notes := []noteRequest{
		{
			NoteType: "common",
			Params:   map[string]string{"text": text},
		},
	}

	payload, _ := json.Marshal(notes)
	url := fmt.Sprintf("%s/leads/%s/notes", c.baseURL, notification.CRMRef)
	req, _ := http.NewRequest("POST", url, bytes.NewBuffer(payload))
	c.addAuthHeaders(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("erro ao anotar lead no CRM: %d - %s", resp.StatusCode, string(body))
	}

	log.Printf("✅ Kommo: Nota criada no lead %s (%s -> %s)",
		notification.CRMRef, notification.FromStage, notification.ToStage)
	return nil
}

func (c *Client) addAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiToken))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
