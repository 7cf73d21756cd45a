package facilitysync

import "facility-maintenance-backend/internal/model"

// apiResponse models one page returned by the facility catalogue.
type apiResponse struct {
	Code int `json:"code"`
	Data struct {
		Page     int       `json:"page"`
		PageSize int       `json:"pageSize"`
		Total    int       `json:"total"`
		Items    []apiItem `json:"items"`
	} `json:"data"`
}

type apiItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

func (i apiItem) facility() model.Facility {
	return model.Facility{ID: i.ID, Name: i.Name, Location: i.Location}
}
