// Package telephony implements the voice call webhooks of a Twilio phone number:
// the caller is asked to speak, the recording is analyzed and the verdict is read back.
package telephony

import (
	"fmt"
	"net/http"

	"github.com/twilio/twilio-go/twiml"
)

const (
	greeting       = "This call is being verified for security purposes."
	blockedMessage = "Warning. Possible AI generated voice detected. Transaction has been blocked."
	allowedMessage = "Voice verified. Transaction approved."
	failureMessage = "Sorry, we could not verify your voice. Please try again later."
)

// recordTimeoutSeconds is the silence after which the recording ends.
const recordTimeoutSeconds = "3"

func greetingResponse(analyzeURL string) (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: greeting},
		&twiml.VoiceRecord{
			Action:  analyzeURL,
			Method:  http.MethodPost,
			Timeout: recordTimeoutSeconds,
		},
	})
}

func sayResponse(message string) (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: message},
	})
}

func writeTwiML(w http.ResponseWriter, doc string, err error) {
	if err != nil {
		http.Error(w, fmt.Sprintf("render twiml: %s", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}
