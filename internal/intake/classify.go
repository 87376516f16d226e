package intake

import (
	"sales_command_center/internal/leads/domain"
	"sales_command_center/internal/servicetitan"
)

const (
	categoryMarketed      = domain.CategoryMarketed
	categoryTechGenerated = domain.CategoryTechGenerated
)

// classifyRules holds the fixed tag rules that partition incoming jobs into
// intake channels.
type classifyRules struct {
	marketedBusinessUnits map[int64]struct{}
	salesJobTypeID        int64
	tglTagTypeID          int64
}

func newClassifyRules(marketedBUs []int64, salesJobTypeID, tglTagTypeID int64) classifyRules {
	buSet := make(map[int64]struct{}, len(marketedBUs))
	for _, bu := range marketedBUs {
		buSet[bu] = struct{}{}
	}
	return classifyRules{
		marketedBusinessUnits: buSet,
		salesJobTypeID:        salesJobTypeID,
		tglTagTypeID:          tglTagTypeID,
	}
}

// classify determines which intake channel a job belongs to. A marketed lead
// is a sales-type job in one of the marketed business units; a tech-generated
// lead carries the turnover tag. Jobs matching neither are not leads and are
// ignored. Marketed wins if a job somehow matches both.
func (r classifyRules) classify(job servicetitan.Job) (string, bool) {
	if _, ok := r.marketedBusinessUnits[job.BusinessUnitID]; ok && job.JobTypeID == r.salesJobTypeID {
		return categoryMarketed, true
	}
	for _, tagID := range job.TagTypeIDs {
		if tagID == r.tglTagTypeID {
			return categoryTechGenerated, true
		}
	}
	return "", false
}
