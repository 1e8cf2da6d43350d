package models

type Carrier struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Carriers is the fixed catalogue users can track against.
var Carriers = []Carrier{
	{Name: "SF Express", Code: "sf-express"},
	{Name: "Debon (Deppon)", Code: "deppon"},
	{Name: "ZTO Express", Code: "zto"},
	{Name: "YTO Express", Code: "yto"},
	{Name: "STO Express", Code: "sto"},
	{Name: "Yunda Express", Code: "yunda"},
	{Name: "China EMS", Code: "china-ems"},
	{Name: "J&T Express China", Code: "jtexpress"},
	{Name: "Best Express", Code: "bestex"},
}

func LookupCarrier(code string) (Carrier, bool) {
	for _, c := range Carriers {
		if c.Code == code {
			return c, true
		}
	}
	return Carrier{}, false
}
