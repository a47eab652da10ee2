package dispatch

import (
	"errors"
	"net/textproto"

	"github.com/shineum/bulk-mailer/internal/transport"
)

// Classify maps a transport failure onto an Outcome. It is total: a nil
// error is OK and anything it does not recognize is SMTPGenericError with
// the error text as detail.
func Classify(err error) Outcome {
	if err == nil {
		return Outcome{Kind: OK}
	}

	var te *transport.Error
	if errors.As(err, &te) {
		return classifyStage(te)
	}

	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return Outcome{Kind: SMTPGenericError, Code: tpErr.Code, Detail: tpErr.Msg}
	}

	return Outcome{Kind: SMTPGenericError, Detail: err.Error()}
}

func classifyStage(te *transport.Error) Outcome {
	detail := te.Message
	if detail == "" {
		detail = te.Error()
	}

	switch te.Stage {
	case transport.StageHello:
		return Outcome{Kind: SMTPHelo, Code: te.Code, Detail: detail}
	case transport.StageMail:
		return Outcome{Kind: SMTPSenderRefused, Code: te.Code, Detail: detail}
	case transport.StageRcpt:
		if te.Code != 0 {
			return Outcome{Kind: SMTPRecipientRefused, Code: te.Code, Detail: detail}
		}
	}
	return Outcome{Kind: SMTPGenericError, Code: te.Code, Detail: te.Error()}
}
