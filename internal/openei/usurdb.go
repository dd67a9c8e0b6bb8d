package openei

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/pkg/errors"

	"navigader/internal/cost"
)

// ReadUSURDB decodes a USURDB download: a JSON array of tariff documents.
// Data: https://openei.org/apps/USURDB/download/usurdb.json.gz
func ReadUSURDB(r io.Reader) ([]*cost.RateData, error) {
	var rates []*cost.RateData
	if err := json.NewDecoder(r).Decode(&rates); err != nil {
		return nil, errors.Wrap(err, "decoding USURDB data")
	}
	return rates, nil
}

// GroupRatePlans assembles tariff documents into rate plans, one per rate
// name, each holding the name's revisions by effective date.
func GroupRatePlans(rates []*cost.RateData) ([]*cost.RatePlan, error) {
	byName := map[string][]*cost.RateData{}
	for _, rd := range rates {
		byName[rd.Name] = append(byName[rd.Name], rd)
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	plans := make([]*cost.RatePlan, 0, len(names))
	for _, name := range names {
		plan, err := cost.NewRatePlan(name, byName[name])
		if err != nil {
			return nil, errors.Wrapf(err, "rate plan %q", name)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}
