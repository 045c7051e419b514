package collector

import (
	"sort"

	"vsphere-healthcheck/internal/model"
)

// SummarizeIops groups the accumulated sample rows by virtual machine and
// totals the read and write rates per group, ranked descending by grand
// total. Cluster and datastore come from the first row seen for a machine;
// groups keep first-seen order under equal totals.
func SummarizeIops(rows []model.IopsSampleRow) []model.IopsSummaryRecord {
	index := make(map[string]int, len(rows))
	records := make([]model.IopsSummaryRecord, 0, len(rows))
	for _, row := range rows {
		i, ok := index[row.VM]
		if !ok {
			i = len(records)
			index[row.VM] = i
			records = append(records, model.IopsSummaryRecord{
				VM:        row.VM,
				Cluster:   row.Cluster,
				Datastore: row.Datastore,
			})
		}
		records[i].ReadTotal += row.ReadIOPS
		records[i].WriteTotal += row.WriteIOPS
	}
	for i := range records {
		records[i].Total = records[i].ReadTotal + records[i].WriteTotal
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Total > records[j].Total
	})
	return records
}
