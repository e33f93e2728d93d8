package mexc

import (
	"encoding/json"
	"fmt"
	"strings"

	"duoleg/internal/domain/model"
)

type depthResp struct {
	Data struct {
		Asks [][]float64 `json:"asks"`
		Bids [][]float64 `json:"bids"`
	} `json:"data"`
}

// contractDetail tolerates the field-name drift between API generations,
// same fallbacks the discovery has always used.
type contractDetail struct {
	PriceScale    *int     `json:"priceScale"`
	PriceScaleAlt *int     `json:"price_scale"`
	PriceDigit    *int     `json:"price_digit"`
	VolPrecision  *int     `json:"volPrecision"`
	QuantityScale *int     `json:"quantity_scale"`
	MinVol        *float64 `json:"minVol"`
	MinVolume     *float64 `json:"min_volume"`
	ContractSize  *float64 `json:"contractSize"`
	ContractValue *float64 `json:"contract_value"`
	Value         *float64 `json:"value"`
	Multiplier    *float64 `json:"multiplier"`
}

func (d contractDetail) toMeta() model.FuturesMeta {
	return model.FuturesMeta{
		PriceScale:   firstInt(4, d.PriceScale, d.PriceScaleAlt, d.PriceDigit),
		VolPrecision: firstInt(0, d.VolPrecision, d.QuantityScale),
		ContractSize: firstFloat(10, d.ContractSize, d.ContractValue, d.Value, d.Multiplier),
		MinContracts: firstFloat(1, d.MinVol, d.MinVolume),
	}
}

// contractDetailResp: data is a single object or an array depending on
// whether the symbol filter matched server-side.
type contractDetailResp struct {
	Data json.RawMessage `json:"data"`
}

func (r contractDetailResp) first() (contractDetail, bool) {
	var arr []contractDetail
	if err := json.Unmarshal(r.Data, &arr); err == nil && len(arr) > 0 {
		return arr[0], true
	}
	var one contractDetail
	if err := json.Unmarshal(r.Data, &one); err == nil {
		return one, true
	}
	return contractDetail{}, false
}

type submitResp struct {
	Success *bool           `json:"success"`
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (r submitResp) ok() bool {
	if r.Success != nil {
		return *r.Success
	}
	return r.Code == 0
}

func (r submitResp) message() string {
	if r.Msg != "" {
		return r.Msg
	}
	if r.Message != "" {
		return r.Message
	}
	return fmt.Sprintf("code %d", r.Code)
}

// orderID digs the id out of data, which is a bare id, an object with an
// orderId field, or a number, depending on endpoint generation.
func (r submitResp) orderID() string {
	if len(r.Data) == 0 {
		return ""
	}
	var obj struct {
		OrderID json.Number `json:"orderId"`
	}
	if err := json.Unmarshal(r.Data, &obj); err == nil && obj.OrderID.String() != "" {
		return obj.OrderID.String()
	}
	var num json.Number
	if err := json.Unmarshal(r.Data, &num); err == nil && num.String() != "" {
		return num.String()
	}
	var s string
	if err := json.Unmarshal(r.Data, &s); err == nil {
		return s
	}
	return ""
}

// orderDetailResp normalizes the order lookup across field-name variants.
type orderDetailResp struct {
	Data orderDetailData `json:"data"`
}

type orderDetailData struct {
	State        json.Number `json:"state"`
	Status       json.Number `json:"status"`
	Vol          float64     `json:"vol"`
	Volume       float64     `json:"volume"`
	DealVol      float64     `json:"dealVol"`
	FilledQty    float64     `json:"filledQty"`
	RemainVol    *float64    `json:"remainVol"`
	DealAvgPrice float64     `json:"dealAvgPrice"`
	PriceAvg     float64     `json:"priceAvg"`
	AvgPrice     float64     `json:"avgPrice"`
}

func (r orderDetailResp) parse() model.OrderDetail {
	d := r.Data
	total := d.Vol
	if total == 0 {
		total = d.Volume
	}
	filled := d.DealVol
	if filled == 0 {
		filled = d.FilledQty
	}
	if filled < 0 {
		filled = 0
	}
	remaining := total - filled
	if d.RemainVol != nil {
		remaining = *d.RemainVol
	}
	if remaining < 0 {
		remaining = 0
	}
	avg := d.DealAvgPrice
	if avg == 0 {
		avg = d.PriceAvg
	}
	if avg == 0 {
		avg = d.AvgPrice
	}
	status := strings.ToLower(d.State.String())
	if status == "" {
		status = strings.ToLower(d.Status.String())
	}
	return model.OrderDetail{
		Status:    status,
		Filled:    filled,
		Total:     total,
		Remaining: remaining,
		AvgPrice:  avg,
	}
}

type assetsResp struct {
	Data []struct {
		Currency         string   `json:"currency"`
		AvailableBalance *float64 `json:"availableBalance"`
		AvailableCash    *float64 `json:"availableCash"`
		AvailableOpen    *float64 `json:"availableOpen"`
		Available        *float64 `json:"available"`
	} `json:"data"`
}

func (r assetsResp) usdtAvailable() (float64, bool) {
	for _, it := range r.Data {
		if strings.ToUpper(it.Currency) != "USDT" {
			continue
		}
		for _, v := range []*float64{it.AvailableBalance, it.AvailableCash, it.AvailableOpen, it.Available} {
			if v != nil {
				return *v, true
			}
		}
	}
	return 0, false
}

func firstInt(def int, vals ...*int) int {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return def
}

func firstFloat(def float64, vals ...*float64) float64 {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return def
}
