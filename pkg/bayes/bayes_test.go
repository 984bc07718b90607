package bayes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/zpam/playtennis/pkg/dataset"
)

const tennisCSV = `Day,Outlook,Temperature,Humidity,Wind,Play Tennis
D1,Sunny,Hot,High,Weak,No
D2,Sunny,Hot,High,Strong,No
D3,Overcast,Hot,High,Weak,Yes
D4,Rain,Mild,High,Weak,Yes
D5,Rain,Cool,Normal,Weak,Yes
D6,Rain,Cool,Normal,Strong,No
D7,Overcast,Cool,Normal,Strong,Yes
D8,Sunny,Mild,High,Weak,No
D9,Sunny,Cool,Normal,Weak,Yes
D10,Rain,Mild,Normal,Weak,Yes
D11,Sunny,Mild,Normal,Strong,Yes
D12,Overcast,Mild,High,Strong,Yes
D13,Overcast,Hot,Normal,Weak,Yes
D14,Rain,Mild,High,Strong,No
`

const tolerance = 1e-9

func tennisDataset(t testing.TB) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Read(strings.NewReader(tennisCSV), "Play Tennis",
		[]string{"Outlook", "Temperature", "Humidity", "Wind"})
	if err != nil {
		t.Fatalf("Failed to read dataset: %v", err)
	}
	return ds
}

// toyDataset is the three-row Outlook/Humidity table
func toyDataset(t testing.TB) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New([]string{"Outlook", "Humidity"}, "Label", []dataset.Row{
		{Values: map[string]string{"Outlook": "Sunny", "Humidity": "High"}, Label: "No"},
		{Values: map[string]string{"Outlook": "Overcast", "Humidity": "High"}, Label: "Yes"},
		{Values: map[string]string{"Outlook": "Overcast", "Humidity": "Normal"}, Label: "Yes"},
	})
	if err != nil {
		t.Fatalf("Failed to build dataset: %v", err)
	}
	return ds
}

func randomDataset(t testing.TB, seed int64) *dataset.Dataset {
	t.Helper()
	r := rand.New(rand.NewSource(seed))
	features := []string{"a", "b", "c"}
	labels := []string{"x", "y", "z", "w"}

	rows := make([]dataset.Row, 1+r.Intn(200))
	for i := range rows {
		values := make(map[string]string, len(features))
		for _, f := range features {
			values[f] = fmt.Sprintf("%s%d", f, r.Intn(5))
		}
		rows[i] = dataset.Row{Values: values, Label: labels[r.Intn(len(labels))]}
	}
	ds, err := dataset.New(features, "label", rows)
	if err != nil {
		t.Fatalf("Failed to build dataset: %v", err)
	}
	return ds
}

func TestBuildPriors(t *testing.T) {
	priors, err := BuildPriors(tennisDataset(t))
	if err != nil {
		t.Fatalf("BuildPriors failed: %v", err)
	}

	if got := priors.Labels(); len(got) != 2 || got[0] != "No" || got[1] != "Yes" {
		t.Errorf("Expected labels [No Yes], got %v", got)
	}
	if p, _ := priors.Prob("Yes"); math.Abs(p-9.0/14) > tolerance {
		t.Errorf("Expected P(Yes)=9/14, got %f", p)
	}
	if p, _ := priors.Prob("No"); math.Abs(p-5.0/14) > tolerance {
		t.Errorf("Expected P(No)=5/14, got %f", p)
	}
	if _, ok := priors.Prob("Maybe"); ok {
		t.Error("Unknown label should not have a prior")
	}
}

func TestBuildPriorsEmptyDataset(t *testing.T) {
	ds, err := dataset.New([]string{"Outlook"}, "Label", nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = BuildPriors(ds)
	var empty *EmptyDatasetError
	if !errors.As(err, &empty) {
		t.Errorf("Expected EmptyDatasetError, got %v", err)
	}

	_, err = BuildConditionals(ds, ds.Features)
	if !errors.As(err, &empty) {
		t.Errorf("Expected EmptyDatasetError from BuildConditionals, got %v", err)
	}

	if _, err := NewModel(ds); !errors.As(err, &empty) {
		t.Errorf("Expected EmptyDatasetError from NewModel, got %v", err)
	}
}

func TestBuildMalformedRows(t *testing.T) {
	// Built by hand to bypass load-time validation
	ds := &dataset.Dataset{
		Features:   []string{"Outlook", "Wind"},
		LabelField: "Label",
		Rows: []dataset.Row{
			{Values: map[string]string{"Outlook": "Sunny", "Wind": "Weak"}, Label: "No"},
			{Values: map[string]string{"Outlook": "Rain"}, Label: "Yes"},
			{Values: map[string]string{"Outlook": "Rain", "Wind": "Weak"}},
		},
	}

	_, err := BuildConditionals(ds, ds.Features)
	var mre *dataset.MalformedRowError
	if !errors.As(err, &mre) {
		t.Fatalf("Expected MalformedRowError, got %v", err)
	}
	if mre.Row != 1 || mre.Field != "Wind" {
		t.Errorf("Expected row 1 field Wind, got row %d field %s", mre.Row, mre.Field)
	}

	_, err = BuildPriors(ds)
	if !errors.As(err, &mre) {
		t.Fatalf("Expected MalformedRowError, got %v", err)
	}
	if mre.Row != 2 || mre.Field != "Label" {
		t.Errorf("Expected row 2 field Label, got row %d field %s", mre.Row, mre.Field)
	}
}

func TestBuildConditionals(t *testing.T) {
	conds, err := BuildConditionals(tennisDataset(t), []string{"Outlook", "Wind"})
	if err != nil {
		t.Fatalf("BuildConditionals failed: %v", err)
	}

	tests := []struct {
		feature, value, label string
		expected              float64
	}{
		{"Outlook", "Sunny", "Yes", 2.0 / 9},
		{"Outlook", "Overcast", "Yes", 4.0 / 9},
		{"Outlook", "Sunny", "No", 3.0 / 5},
		{"Wind", "Strong", "No", 3.0 / 5},
		{"Wind", "Weak", "Yes", 6.0 / 9},
	}
	for _, tt := range tests {
		got, ok := conds[tt.feature][Pair{Value: tt.value, Label: tt.label}]
		if !ok {
			t.Errorf("P(%s=%s|%s) missing", tt.feature, tt.value, tt.label)
			continue
		}
		if math.Abs(got-tt.expected) > tolerance {
			t.Errorf("P(%s=%s|%s) = %f, expected %f", tt.feature, tt.value, tt.label, got, tt.expected)
		}
	}

	if _, ok := conds["Outlook"][Pair{Value: "Overcast", Label: "No"}]; ok {
		t.Error("Unseen pair should be absent, not zero-filled")
	}
	if _, ok := conds["Temperature"]; ok {
		t.Error("Only requested features should be built")
	}
}

func TestConditionalsAreKeyedPerFeature(t *testing.T) {
	ds, err := dataset.New([]string{"Home", "Away"}, "Result", []dataset.Row{
		{Values: map[string]string{"Home": "Red", "Away": "Blue"}, Label: "Win"},
		{Values: map[string]string{"Home": "Blue", "Away": "Blue"}, Label: "Win"},
	})
	if err != nil {
		t.Fatal(err)
	}

	conds, err := BuildConditionals(ds, ds.Features)
	if err != nil {
		t.Fatal(err)
	}
	if p := conds["Home"][Pair{Value: "Blue", Label: "Win"}]; p != 0.5 {
		t.Errorf("Expected P(Home=Blue|Win)=0.5, got %f", p)
	}
	if p := conds["Away"][Pair{Value: "Blue", Label: "Win"}]; p != 1.0 {
		t.Errorf("Expected P(Away=Blue|Win)=1.0, got %f", p)
	}
}

func TestProbabilityInvariants(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		ds := randomDataset(t, seed)

		priors, err := BuildPriors(ds)
		if err != nil {
			t.Fatalf("seed %d: BuildPriors failed: %v", seed, err)
		}
		var sum float64
		for _, label := range priors.Labels() {
			p, _ := priors.Prob(label)
			sum += p
		}
		if math.Abs(sum-1) > tolerance {
			t.Errorf("seed %d: priors sum to %f", seed, sum)
		}

		conds, err := BuildConditionals(ds, ds.Features)
		if err != nil {
			t.Fatalf("seed %d: BuildConditionals failed: %v", seed, err)
		}
		for _, f := range ds.Features {
			sums := make(map[string]float64)
			for pair, p := range conds[f] {
				if p <= 0 || p > 1 {
					t.Errorf("seed %d: P(%s=%s|%s) = %f out of range", seed, f, pair.Value, pair.Label, p)
				}
				sums[pair.Label] += p
			}
			for _, label := range priors.Labels() {
				if math.Abs(sums[label]-1) > tolerance {
					t.Errorf("seed %d: P(%s|%s) sums to %f", seed, f, label, sums[label])
				}
			}
		}
	}
}

func TestToyScenario(t *testing.T) {
	model, err := NewModel(toyDataset(t))
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}

	if p, _ := model.Priors().Prob("Yes"); math.Abs(p-2.0/3) > tolerance {
		t.Errorf("Expected P(Yes)=0.667, got %f", p)
	}
	if p, _ := model.Conditional("Outlook", "Overcast", "Yes"); p != 1.0 {
		t.Errorf("Expected P(Overcast|Yes)=1.0, got %f", p)
	}

	pred, err := model.Predict(Sample{"Outlook": "Overcast", "Humidity": "Normal"})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if pred.Label != "Yes" {
		t.Errorf("Expected Yes, got %s", pred.Label)
	}

	yes, _ := pred.Posteriors.Score("Yes")
	no, _ := pred.Posteriors.Score("No")
	if yes <= no {
		t.Errorf("Expected Yes > No, got %g <= %g", yes, no)
	}
	if math.Abs(yes-1.0/3) > tolerance {
		t.Errorf("Expected Yes score 1/3, got %g", yes)
	}
	// Overcast and Normal were both unseen under No
	expectedNo := 1.0 / 3 * DefaultFloor * DefaultFloor
	if math.Abs(no-expectedNo) > 1e-20 {
		t.Errorf("Expected No score %g, got %g", expectedNo, no)
	}
}

func TestPredictTennis(t *testing.T) {
	model, err := NewModel(tennisDataset(t))
	if err != nil {
		t.Fatalf("NewModel failed: %v", err)
	}

	tests := []struct {
		name     string
		sample   Sample
		expected string
	}{
		{
			name:     "Textbook query",
			sample:   Sample{"Outlook": "Sunny", "Temperature": "Cool", "Humidity": "High", "Wind": "Strong"},
			expected: "No",
		},
		{
			name:     "Overcast always plays",
			sample:   Sample{"Outlook": "Overcast", "Temperature": "Hot", "Humidity": "High", "Wind": "Weak"},
			expected: "Yes",
		},
		{
			name:     "Mild rain",
			sample:   Sample{"Outlook": "Rain", "Temperature": "Mild", "Humidity": "Normal", "Wind": "Weak"},
			expected: "Yes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := model.Predict(tt.sample)
			if err != nil {
				t.Fatalf("Predict failed: %v", err)
			}
			if pred.Label != tt.expected {
				t.Errorf("Expected %s, got %s (%v)", tt.expected, pred.Label, pred.Posteriors.Map())
			}
		})
	}

	pred, _ := model.Predict(tests[0].sample)
	yes, _ := pred.Posteriors.Score("Yes")
	no, _ := pred.Posteriors.Score("No")
	if math.Abs(yes-9.0/14*2/9*3/9*3/9*3/9) > tolerance {
		t.Errorf("Unexpected Yes score %g", yes)
	}
	if math.Abs(no-5.0/14*3/5*1/5*4/5*3/5) > tolerance {
		t.Errorf("Unexpected No score %g", no)
	}
	if yes+no >= 1 {
		t.Errorf("Posteriors should stay unnormalized, got sum %g", yes+no)
	}
}

func TestPredictUnknownValue(t *testing.T) {
	model, err := NewModel(tennisDataset(t))
	if err != nil {
		t.Fatal(err)
	}

	known := Sample{"Outlook": "Sunny", "Temperature": "Cool", "Humidity": "High", "Wind": "Strong"}
	foggy := Sample{"Outlook": "Foggy", "Temperature": "Cool", "Humidity": "High", "Wind": "Strong"}

	pred, err := model.Predict(foggy)
	if err != nil {
		t.Fatalf("Unknown value must not fail, got %v", err)
	}

	// Every class is scaled by the floor in place of its Outlook evidence
	for _, label := range model.Labels() {
		prior, _ := model.Priors().Prob(label)
		expected := prior * DefaultFloor
		for _, f := range []string{"Temperature", "Humidity", "Wind"} {
			p, _ := model.Conditional(f, known[f], label)
			expected *= p
		}
		got, _ := pred.Posteriors.Score(label)
		if math.Abs(got-expected) > 1e-18 {
			t.Errorf("%s: expected %g, got %g", label, expected, got)
		}
	}
	if pred.Label != "No" {
		t.Errorf("Expected No from the remaining evidence, got %s", pred.Label)
	}

	again, _ := model.Predict(foggy)
	if again.Label != pred.Label {
		t.Error("Prediction should be deterministic")
	}
}

func TestPredictTieBreak(t *testing.T) {
	build := func(first, second string) *Model {
		ds, err := dataset.New([]string{"Sky"}, "Label", []dataset.Row{
			{Values: map[string]string{"Sky": "Clear"}, Label: first},
			{Values: map[string]string{"Sky": "Clear"}, Label: second},
		})
		if err != nil {
			t.Fatal(err)
		}
		m, err := NewModel(ds)
		if err != nil {
			t.Fatal(err)
		}
		return m
	}

	for _, order := range [][2]string{{"A", "B"}, {"B", "A"}} {
		model := build(order[0], order[1])
		for i := 0; i < 20; i++ {
			pred, err := model.Predict(Sample{"Sky": "Clear"})
			if err != nil {
				t.Fatal(err)
			}
			if pred.Label != order[0] {
				t.Fatalf("Expected first enumerated label %s, got %s", order[0], pred.Label)
			}
		}
	}
}

func TestPredictFloorBoundaries(t *testing.T) {
	ds := tennisDataset(t)
	priors, _ := BuildPriors(ds)
	conds, _ := BuildConditionals(ds, ds.Features)
	sample := Sample{"Outlook": "Foggy", "Temperature": "Hot", "Humidity": "High", "Wind": "Weak"}

	// With a zero floor every class collapses and the tie goes to the first label
	pred, err := Predict(sample, priors, conds, 0)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	for _, label := range priors.Labels() {
		if s, _ := pred.Posteriors.Score(label); s != 0 {
			t.Errorf("Expected zero score for %s, got %g", label, s)
		}
	}
	if pred.Label != priors.Labels()[0] {
		t.Errorf("Expected %s, got %s", priors.Labels()[0], pred.Label)
	}

	for _, floor := range []float64{-1e-6, 1.5, math.NaN()} {
		_, err := Predict(sample, priors, conds, floor)
		var ife *InvalidFloorError
		if !errors.As(err, &ife) {
			t.Errorf("floor %g: expected InvalidFloorError, got %v", floor, err)
		}
	}

	if _, err := NewModel(ds, WithFloor(-1)); err == nil {
		t.Error("Expected NewModel to reject a negative floor")
	}

	m, err := NewModel(ds, WithFloor(1e-3))
	if err != nil {
		t.Fatal(err)
	}
	if m.Floor() != 1e-3 {
		t.Errorf("Expected floor 1e-3, got %g", m.Floor())
	}
}

func TestFloorDominance(t *testing.T) {
	model, err := NewModel(toyDataset(t))
	if err != nil {
		t.Fatal(err)
	}

	// Sunny/High is fully observed under No; Sunny is unseen under Yes
	pred, err := model.Predict(Sample{"Outlook": "Sunny", "Humidity": "High"})
	if err != nil {
		t.Fatal(err)
	}
	no, _ := pred.Posteriors.Score("No")
	yes, _ := pred.Posteriors.Score("Yes")

	if pred.Label != "No" {
		t.Errorf("Fully supported No should win, got %s (No=%g Yes=%g)", pred.Label, no, yes)
	}
	if bound := 2.0 / 3 * DefaultFloor; yes > bound {
		t.Errorf("Yes should be bounded by prior*floor=%g, got %g", bound, yes)
	}
}

func TestPredictSchemaErrors(t *testing.T) {
	model, err := NewModel(tennisDataset(t))
	if err != nil {
		t.Fatal(err)
	}

	full := func() Sample {
		return Sample{"Outlook": "Sunny", "Temperature": "Hot", "Humidity": "High", "Wind": "Weak"}
	}

	missing := full()
	delete(missing, "Wind")
	delete(missing, "Humidity")
	_, err = model.Predict(missing)
	var mfe *MissingFeatureError
	if !errors.As(err, &mfe) {
		t.Fatalf("Expected MissingFeatureError, got %v", err)
	}
	if mfe.Feature != "Humidity" {
		t.Errorf("Expected Humidity reported first, got %s", mfe.Feature)
	}

	blank := full()
	blank["Outlook"] = ""
	if _, err := model.Predict(blank); !errors.As(err, &mfe) {
		t.Errorf("Expected MissingFeatureError for empty value, got %v", err)
	}

	extra := full()
	extra["Precipitation"] = "Heavy"
	extra["Cloudiness"] = "Low"
	_, err = model.Predict(extra)
	var ufe *UnknownFeatureError
	if !errors.As(err, &ufe) {
		t.Fatalf("Expected UnknownFeatureError, got %v", err)
	}
	if ufe.Feature != "Cloudiness" {
		t.Errorf("Expected Cloudiness reported first, got %s", ufe.Feature)
	}

	both := full()
	delete(both, "Wind")
	both["Day"] = "D1"
	if _, err := model.Predict(both); !errors.As(err, &mfe) {
		t.Errorf("Missing features should be reported before unknown ones, got %v", err)
	}
}

func TestCheckMatchesPredict(t *testing.T) {
	model, err := NewModel(tennisDataset(t))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		sample Sample
	}{
		{"valid", Sample{"Outlook": "Sunny", "Temperature": "Hot", "Humidity": "High", "Wind": "Weak"}},
		{"unseen value", Sample{"Outlook": "Foggy", "Temperature": "Hot", "Humidity": "High", "Wind": "Weak"}},
		{"missing", Sample{"Humidity": "High", "Outlook": "Sunny|Temperature=Cool|Wind=Strong"}},
		{"unknown", Sample{"Outlook": "Sunny", "Temperature": "Hot", "Humidity": "High", "Wind": "Weak", "Day": "D1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr := model.Check(tt.sample)
			_, predictErr := model.Predict(tt.sample)
			if (checkErr == nil) != (predictErr == nil) {
				t.Fatalf("Check returned %v but Predict returned %v", checkErr, predictErr)
			}
			if checkErr != nil && checkErr.Error() != predictErr.Error() {
				t.Errorf("Check error %q differs from Predict error %q", checkErr, predictErr)
			}
		})
	}
}

func TestPredictIdempotent(t *testing.T) {
	model, err := NewModel(tennisDataset(t))
	if err != nil {
		t.Fatal(err)
	}
	sample := Sample{"Outlook": "Rain", "Temperature": "Hot", "Humidity": "Normal", "Wind": "Strong"}

	first, err := model.Predict(sample)
	if err != nil {
		t.Fatal(err)
	}
	second, err := model.Predict(sample)
	if err != nil {
		t.Fatal(err)
	}

	if first.Label != second.Label {
		t.Errorf("Labels differ: %s vs %s", first.Label, second.Label)
	}
	for _, label := range model.Labels() {
		a, _ := first.Posteriors.Score(label)
		b, _ := second.Posteriors.Score(label)
		if a != b {
			t.Errorf("%s: scores differ: %g vs %g", label, a, b)
		}
	}
}

func TestConcurrentPredict(t *testing.T) {
	model, err := NewModel(tennisDataset(t))
	if err != nil {
		t.Fatal(err)
	}
	sample := Sample{"Outlook": "Sunny", "Temperature": "Cool", "Humidity": "High", "Wind": "Strong"}
	want, _ := model.Predict(sample)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got, err := model.Predict(sample)
				if err != nil {
					errs <- err
					return
				}
				if got.Label != want.Label {
					errs <- fmt.Errorf("label %s, want %s", got.Label, want.Label)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestPosterior(t *testing.T) {
	p := NewPosterior([]string{"Yes", "No"}, map[string]float64{"Yes": 0.03, "No": 0.01})

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"Yes":0.03,"No":0.01}` {
		t.Errorf("Unexpected JSON: %s", data)
	}

	n := p.Normalized()
	if s, _ := n.Score("Yes"); math.Abs(s-0.75) > tolerance {
		t.Errorf("Expected normalized Yes 0.75, got %f", s)
	}
	if s, _ := p.Score("Yes"); s != 0.03 {
		t.Error("Normalized must not modify the raw posterior")
	}

	zero := NewPosterior([]string{"A"}, nil).Normalized()
	if s, _ := zero.Score("A"); s != 0 {
		t.Errorf("Expected 0 for all-zero posterior, got %f", s)
	}
}

func TestPrintStats(t *testing.T) {
	model, err := NewModel(tennisDataset(t))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	model.PrintStats(&buf)
	out := buf.String()

	for _, want := range []string{"Rows: 14", "P(Outlook | class)", "Overcast", "0.6429"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in stats output", want)
		}
	}

	info := model.Info()
	if info.LabelCounts["Yes"] != 9 || info.LabelCounts["No"] != 5 {
		t.Errorf("Unexpected label counts: %v", info.LabelCounts)
	}
	if len(info.Domains["Humidity"]) != 2 {
		t.Errorf("Expected 2 Humidity values, got %v", info.Domains["Humidity"])
	}

	entries := model.Entries("Outlook")
	if len(entries) != 5 {
		t.Errorf("Expected 5 observed Outlook pairs, got %d", len(entries))
	}
	if entries[0].Label != "No" || entries[0].Value != "Sunny" {
		t.Errorf("Unexpected first entry: %+v", entries[0])
	}
}

func BenchmarkPredict(b *testing.B) {
	model, err := NewModel(tennisDataset(b))
	if err != nil {
		b.Fatal(err)
	}
	sample := Sample{"Outlook": "Sunny", "Temperature": "Cool", "Humidity": "High", "Wind": "Strong"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = model.Predict(sample)
	}
}
