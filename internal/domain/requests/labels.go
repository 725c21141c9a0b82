package requests

// Label pairs an enum value with its display text for clients.
type Label struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var statusLabels = map[Status]string{
	StatusNew:        "Новая",
	StatusAccepted:   "Принята",
	StatusInProgress: "В работе",
	StatusOnHold:     "Приостановлена",
	StatusCompleted:  "Выполнена",
	StatusRejected:   "Отклонена",
	StatusReopened:   "Открыта повторно",
	StatusCancelled:  "Отменена",
}

var categoryLabels = map[Category]string{
	CategoryPlumbing:   "Сантехника",
	CategoryElectrical: "Электрика",
	CategoryRepair:     "Ремонт",
	CategoryCleaning:   "Уборка",
	CategoryIntercom:   "Домофон",
	CategoryElevator:   "Лифт",
	CategoryHeating:    "Отопление",
	CategoryOther:      "Другое",
}

func StatusLabel(s Status) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

func StatusLabels() []Label {
	out := make([]Label, 0, len(AllStatuses))
	for _, s := range AllStatuses {
		out = append(out, Label{Value: string(s), Label: statusLabels[s]})
	}
	return out
}

func CategoryLabels() []Label {
	out := make([]Label, 0, len(AllCategories))
	for _, c := range AllCategories {
		out = append(out, Label{Value: string(c), Label: categoryLabels[c]})
	}
	return out
}
