package dispatch

import "errors"

// RequestError - ошибка проверки запроса. Превращается в конверт типа error,
// Details добавляются в payload рядом с полем error.
type RequestError struct {
	Message string
	Details map[string]any
}

func (e *RequestError) Error() string {
	return e.Message
}

func newRequestError(message string, details map[string]any) *RequestError {
	return &RequestError{Message: message, Details: details}
}

// errorPayload строит payload ответа об ошибке.
func errorPayload(err error) map[string]any {
	payload := map[string]any{"error": err.Error()}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		for k, v := range reqErr.Details {
			payload[k] = v
		}
	}
	return payload
}
