package kommo

// Contact: dados de contato do lead no CRM (fonte da verdade, só leitura).
type Contact struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type noteRequest struct {
	NoteType string            `json:"note_type"`
	Params   map[string]string `json:"params"`
}
