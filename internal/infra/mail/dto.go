package mail

type StageChangedEmailData struct {
	Name      string
	FromStage string
	ToStage   string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
}
