package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"blackmarket/internal/cart"
	"blackmarket/internal/catalog"
	"blackmarket/internal/config"
	"blackmarket/internal/logger"
)

// Inbound host actions.
const (
	HostOpenUI            = "openUI"
	HostCloseUI           = "closeUI"
	HostUpdateStock       = "updateStock"
	HostUpdatePlayerMoney = "updatePlayerMoney"
)

// Message is the tagged record pushed by the host.
type Message struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// OpenPayload is the data of an openUI message.
type OpenPayload struct {
	Config     config.Storefront  `json:"config"`
	Categories []catalog.Category `json:"categories"`
	Stock      catalog.StockLevel `json:"stock"`
	Cart       []cart.Line        `json:"cart"`
}

// MoneyPayload is the data of an updatePlayerMoney message.
type MoneyPayload struct {
	CurrencyType string `json:"currencyType"`
	Amount       int64  `json:"amount"`
}

// DecodeMessage parses a raw host message.
func DecodeMessage(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("decode host message: %w", err)
	}
	if msg.Action == "" {
		return Message{}, fmt.Errorf("decode host message: missing action")
	}
	return msg, nil
}

func decodeData(msg Message, v interface{}) error {
	if len(msg.Data) == 0 || string(msg.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("decode %s data: %w", msg.Action, err)
	}
	return nil
}

// HandleMessage applies one host message. openUI while open is ignored, as
// are unknown actions; both are logged and reported through the returned
// error so callers can tell them apart from decode failures.
func (s *Session) HandleMessage(msg Message) error {
	switch msg.Action {
	case HostOpenUI:
		var p OpenPayload
		if err := decodeData(msg, &p); err != nil {
			return err
		}
		err := s.Open(p)
		if errors.Is(err, ErrAlreadyOpen) {
			logger.LogInfo("Ignoring openUI, storefront already open (session %s)", s.id)
		}
		return err

	case HostCloseUI:
		s.Close()
		return nil

	case HostUpdateStock:
		var stock catalog.StockLevel
		if err := decodeData(msg, &stock); err != nil {
			return err
		}
		s.UpdateStock(stock)
		return nil

	case HostUpdatePlayerMoney:
		var p MoneyPayload
		if err := decodeData(msg, &p); err != nil {
			return err
		}
		s.UpdatePlayerMoney(p)
		return nil
	}

	logger.LogWarn("Ignoring unknown host action %q", msg.Action)
	return fmt.Errorf("%q: %w", msg.Action, ErrUnknownAction)
}
