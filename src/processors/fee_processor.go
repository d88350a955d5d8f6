package processors

import (
	"sort"

	"github.com/username/tradeledger/backend/src/models"
)

type feeProcessorImpl struct{}

func NewFeeProcessor() FeeProcessor {
	return &feeProcessorImpl{}
}

func (p *feeProcessorImpl) Process(note *models.Note) []models.FeeDetail {
	feeDetails := []models.FeeDetail{}
	if note == nil {
		return feeDetails
	}

	var date, number string
	if note.TradeDate != nil {
		date = note.TradeDate.Format(models.DateFormat)
	}
	if note.NoteNumber != nil {
		number = *note.NoteNumber
	}

	for name, amount := range note.Fees {
		feeDetails = append(feeDetails, models.FeeDetail{
			Name:       name,
			Amount:     amount,
			Broker:     note.Broker,
			NoteNumber: number,
			Date:       date,
		})
	}
	sort.Slice(feeDetails, func(i, j int) bool { return feeDetails[i].Name < feeDetails[j].Name })
	return feeDetails
}
