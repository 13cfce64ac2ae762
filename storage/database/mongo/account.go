// Package mongorepos stores accounts in Mongo, one collection per variant.
package mongorepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/admissions/core/account"
)

var collections = map[account.Variant]string{
	account.VariantStudent: "students",
	account.VariantTeacher: "teachers",
	account.VariantAdmin:   "admins",
}

type accountDoc struct {
	ID              string                  `bson:"_id"`
	Variant         string                  `bson:"variant"`
	Name            string                  `bson:"name"`
	Email           string                  `bson:"email"`
	PasswordHash    []byte                  `bson:"password_hash"`
	Address         string                  `bson:"address,omitempty"`
	ProfilePicture  string                  `bson:"profile_picture,omitempty"`
	CurrentSchool   string                  `bson:"current_school,omitempty"`
	PreviousSchool  string                  `bson:"previous_school,omitempty"`
	IsApproved      bool                    `bson:"is_approved"`
	Notifications   []string                `bson:"notifications"`
	AssignedTeacher string                  `bson:"assigned_teacher,omitempty"`
	ParentsDetails  *parentsDoc             `bson:"parents_details,omitempty"`
	IsTeacher       bool                    `bson:"is_teacher,omitempty"`
	Experience      string                  `bson:"experience,omitempty"`
	Subjects        []string                `bson:"expertise_in_subjects,omitempty"`
	CreatedAt       time.Time               `bson:"created_at"`
	UpdatedAt       time.Time               `bson:"updated_at"`
}

type parentsDoc struct {
	FathersName string `bson:"fathers_name"`
	MothersName string `bson:"mothers_name"`
}

func toParentsDoc(pd *account.ParentsDetails) *parentsDoc {
	if pd == nil {
		return nil
	}
	return &parentsDoc{FathersName: pd.FathersName, MothersName: pd.MothersName}
}

func (doc *parentsDoc) details() *account.ParentsDetails {
	if doc == nil {
		return nil
	}
	return &account.ParentsDetails{FathersName: doc.FathersName, MothersName: doc.MothersName}
}

func toDoc(acc account.Account) accountDoc {
	doc := accountDoc{
		ID:              acc.ID,
		Variant:         string(acc.Variant),
		Name:            acc.Name,
		Email:           acc.Email,
		PasswordHash:    acc.PasswordHash,
		Address:         acc.Address,
		ProfilePicture:  acc.ProfilePicture,
		CurrentSchool:   acc.CurrentSchool,
		PreviousSchool:  acc.PreviousSchool,
		IsApproved:      acc.IsApproved,
		Notifications:   acc.Notifications,
		AssignedTeacher: acc.AssignedTeacher,
		ParentsDetails:  toParentsDoc(acc.ParentsDetails),
		IsTeacher:       acc.IsTeacher,
		Experience:      acc.Experience,
		Subjects:        acc.ExpertiseInSubjects,
		CreatedAt:       acc.CreatedAt,
		UpdatedAt:       acc.UpdatedAt,
	}
	if doc.Notifications == nil {
		doc.Notifications = []string{}
	}
	return doc
}

func (doc accountDoc) account() account.Account {
	acc := account.Account{
		ID:                  doc.ID,
		Variant:             account.Variant(doc.Variant),
		Name:                doc.Name,
		Email:               doc.Email,
		PasswordHash:        doc.PasswordHash,
		Address:             doc.Address,
		ProfilePicture:      doc.ProfilePicture,
		CurrentSchool:       doc.CurrentSchool,
		PreviousSchool:      doc.PreviousSchool,
		IsApproved:          doc.IsApproved,
		Notifications:       doc.Notifications,
		AssignedTeacher:     doc.AssignedTeacher,
		ParentsDetails:      doc.ParentsDetails.details(),
		IsTeacher:           doc.IsTeacher,
		Experience:          doc.Experience,
		ExpertiseInSubjects: doc.Subjects,
		CreatedAt:           doc.CreatedAt.UTC(),
		UpdatedAt:           doc.UpdatedAt.UTC(),
	}
	if acc.Notifications == nil {
		acc.Notifications = []string{}
	}
	return acc
}

type accountRepository struct {
	db *mongo.Database
}

var _ account.Repository = (*accountRepository)(nil)

func NewAccountRepository(db *mongo.Database) account.Repository {
	return &accountRepository{db: db}
}

// EnsureIndexes creates the unique email index of every collection.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, name := range collections {
		_, err := db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		})
		if err != nil {
			return errors.Wrapf(err, "creating %s email index", name)
		}
	}
	return nil
}

func (repo *accountRepository) coll(v account.Variant) (*mongo.Collection, error) {
	name, ok := collections[v]
	if !ok {
		return nil, account.ErrInvalidVariant
	}
	return repo.db.Collection(name), nil
}

func match(filter account.GetFilter) (bson.M, error) {
	switch {
	case filter.ID != "":
		return bson.M{"_id": filter.ID}, nil
	case filter.Email != "":
		return bson.M{"email": filter.Email}, nil
	}
	return nil, account.ErrNotFound
}

func (repo *accountRepository) CheckEmailUniqueness(ctx context.Context, v account.Variant, email string) error {
	coll, err := repo.coll(v)
	if err != nil {
		return err
	}
	n, err := coll.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if n > 0 {
		return account.ErrEmailExists
	}
	return nil
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	coll, err := repo.coll(acc.Variant)
	if err != nil {
		return account.Account{}, err
	}
	acc.ID = uuid.NewString()
	doc := toDoc(acc)
	if _, err = coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return doc.account(), nil
}

func (repo *accountRepository) GetAccount(ctx context.Context, v account.Variant, filter account.GetFilter) (account.Account, error) {
	coll, err := repo.coll(v)
	if err != nil {
		return account.Account{}, err
	}
	m, err := match(filter)
	if err != nil {
		return account.Account{}, err
	}

	var doc accountDoc
	if err = coll.FindOne(ctx, m).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, errors.Wrap(err, "finding account")
	}
	return doc.account(), nil
}

func (repo *accountRepository) FilterAccounts(ctx context.Context, v account.Variant, filter account.QueryFilter) ([]account.Account, error) {
	coll, err := repo.coll(v)
	if err != nil {
		return nil, err
	}
	m := bson.M{}
	if filter.IsApproved != nil {
		m["is_approved"] = *filter.IsApproved
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := coll.Find(ctx, m, opts)
	if err != nil {
		return nil, errors.Wrap(err, "finding accounts")
	}
	var docs []accountDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding accounts")
	}
	accs := make([]account.Account, 0, len(docs))
	for _, doc := range docs {
		accs = append(accs, doc.account())
	}
	return accs, nil
}

// setDoc is the `$set` document of `upd` on a v record.
func setDoc(v account.Variant, upd account.Update) bson.M {
	set := bson.M{}
	p := upd.Patch
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Address != nil {
		set["address"] = *p.Address
	}
	if p.ProfilePicture != nil {
		set["profile_picture"] = *p.ProfilePicture
	}
	if p.CurrentSchool != nil {
		set["current_school"] = *p.CurrentSchool
	}
	if p.PreviousSchool != nil {
		set["previous_school"] = *p.PreviousSchool
	}
	if p.ParentsDetails != nil && v == account.VariantStudent {
		set["parents_details"] = toParentsDoc(p.ParentsDetails)
	}
	if p.Experience != nil && v == account.VariantTeacher {
		set["experience"] = *p.Experience
	}
	if p.Subjects != nil && v == account.VariantTeacher {
		set["expertise_in_subjects"] = p.Subjects
	}
	if upd.PasswordHash != nil {
		set["password_hash"] = upd.PasswordHash
	}
	if upd.Approve && v.Approvable() {
		set["is_approved"] = true
		if v == account.VariantTeacher {
			set["is_teacher"] = true
		}
	}
	if upd.AssignedTeacher != nil && v == account.VariantStudent {
		set["assigned_teacher"] = *upd.AssignedTeacher
	}
	if !upd.UpdatedAt.IsZero() {
		set["updated_at"] = upd.UpdatedAt
	}
	return set
}

func (repo *accountRepository) UpdateAccount(ctx context.Context, v account.Variant, filter account.GetFilter, upd account.Update) (account.Account, error) {
	coll, err := repo.coll(v)
	if err != nil {
		return account.Account{}, err
	}
	m, err := match(filter)
	if err != nil {
		return account.Account{}, err
	}
	set := setDoc(v, upd)
	if len(set) == 0 {
		return repo.GetAccount(ctx, v, filter)
	}

	var doc accountDoc
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err = coll.FindOneAndUpdate(ctx, m, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	return doc.account(), nil
}

func (repo *accountRepository) PushNotification(ctx context.Context, v account.Variant, filter account.GetFilter, msg string) error {
	coll, err := repo.coll(v)
	if err != nil {
		return err
	}
	m, err := match(filter)
	if err != nil {
		return err
	}
	res, err := coll.UpdateOne(ctx, m, bson.M{"$push": bson.M{"notifications": msg}})
	if err != nil {
		return errors.Wrap(err, "pushing notification")
	}
	if res.MatchedCount == 0 {
		return account.ErrNotFound
	}
	return nil
}

func (repo *accountRepository) PushNotificationAll(ctx context.Context, v account.Variant, msg string) (int64, error) {
	coll, err := repo.coll(v)
	if err != nil {
		return 0, err
	}
	res, err := coll.UpdateMany(ctx, bson.M{}, bson.M{"$push": bson.M{"notifications": msg}})
	if err != nil {
		return 0, errors.Wrap(err, "pushing notifications")
	}
	return res.ModifiedCount, nil
}

func (repo *accountRepository) DeleteAccount(ctx context.Context, v account.Variant, filter account.GetFilter) error {
	coll, err := repo.coll(v)
	if err != nil {
		return err
	}
	m, err := match(filter)
	if err != nil {
		return err
	}
	res, err := coll.DeleteOne(ctx, m)
	if err != nil {
		return errors.Wrap(err, "deleting account")
	}
	if res.DeletedCount == 0 {
		return account.ErrNotFound
	}
	return nil
}
