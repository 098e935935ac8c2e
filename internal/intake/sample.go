// internal/intake/sample.go

package intake

import (
	"fmt"

	"github.com/shopspring/decimal"

	"loanflow/internal/models"
)

// sampleClients seeds the demo generator; batches cycle through it.
var sampleClients = []struct {
	name     string
	address  string
	email    string
	phone    string
	property string
}{
	{
		name:     "Alexandre Dubois",
		address:  "25 Avenue Montaigne, 75008 Paris, France",
		email:    "alexandre.dubois@email.com",
		phone:    "+33 6 12 34 56 78",
		property: "Appartement de luxe de 250m² avec terrasse panoramique",
	},
	{
		name:     "Camille Laurent",
		address:  "12 Rue de la République, 69002 Lyon, France",
		email:    "camille.laurent@email.com",
		phone:    "+33 6 98 76 54 32",
		property: "Maison de ville avec jardin arboré",
	},
	{
		name:     "Hélène Moreau",
		address:  "8 Place du Capitole, 31000 Toulouse, France",
		email:    "helene.moreau@email.com",
		phone:    "+33 7 11 22 33 44",
		property: "Appartement T4 en centre-ville",
	},
	{
		name:     "Julien Lefèvre",
		address:  "3 Quai des Chartrons, 33000 Bordeaux, France",
		email:    "julien.lefevre@email.com",
		phone:    "+33 6 55 44 33 22",
		property: "Échoppe bordelaise rénovée",
	},
	{
		name:     "Margaux Petit",
		address:  "14 Promenade des Anglais, 06000 Nice, France",
		email:    "margaux.petit@email.com",
		phone:    "+33 7 66 77 88 99",
		property: "Studio avec vue mer",
	},
	{
		name:     "Thomas Garnier",
		address:  "27 Rue Saint-Malo, 35000 Rennes, France",
		email:    "thomas.garnier@email.com",
		phone:    "+33 6 10 20 30 40",
		property: "Longère bretonne restaurée",
	},
}

// SampleApplication returns the demo record used by the single-run
// mode: a complete application that passes every phase.
func SampleApplication() *models.LoanApplication {
	app := models.NewApplication(map[string]interface{}{
		"client_name":          "Alexandre Dubois",
		"address":              "25 Avenue Montaigne, 75008 Paris, France",
		"email":                "alexandre.dubois@email.com",
		"phone":                "+33 6 12 34 56 78",
		"loan_amount":          decimal.NewFromInt(750000),
		"loan_duration_years":  25,
		"property_description": "Appartement haussmannien de 120m² dans le 8ème arrondissement",
		"monthly_income":       decimal.NewFromInt(35000),
		"monthly_expenses":     decimal.NewFromInt(8000),
	})
	app.UpdateStatus(models.StatusReceived, "demo submission")
	return app
}

// SampleBatch builds count applications cycling through four profiles:
// a compliant loan, a record with no email, an applicant whose expenses
// breach the debt-to-income ceiling, and an oversized loan whose payment
// breaks the compliance cap. Output is deterministic for a given count.
func SampleBatch(count int) []*models.LoanApplication {
	apps := make([]*models.LoanApplication, 0, count)
	for i := 0; i < count; i++ {
		client := sampleClients[i%len(sampleClients)]
		fields := map[string]interface{}{
			"application_id":       fmt.Sprintf("LOAN_DEMO_%03d", i+1),
			"client_name":          client.name,
			"address":              client.address,
			"email":                client.email,
			"phone":                client.phone,
			"loan_amount":          decimal.NewFromInt(600000 + int64(i%5)*50000),
			"loan_duration_years":  25,
			"property_description": client.property,
			"monthly_income":       decimal.NewFromInt(35000),
			"monthly_expenses":     decimal.NewFromInt(8000),
		}

		switch i % 4 {
		case 1: // incomplete after retries
			delete(fields, "email")
		case 2: // debt-to-income ratio 0.8
			fields["monthly_income"] = decimal.NewFromInt(5000)
			fields["monthly_expenses"] = decimal.NewFromInt(4000)
		case 3: // monthly payment above the compliance cap
			fields["loan_amount"] = decimal.NewFromInt(2500000)
		}

		app := models.NewApplication(fields)
		app.UpdateStatus(models.StatusReceived, "demo submission")
		apps = append(apps, app)
	}
	return apps
}
