package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pershin-daniil/facultymeet/pkg/models"
	"github.com/pershin-daniil/facultymeet/pkg/schedule"
)

const minPasswordLength = 8

// Designations lists the labels an editor may assign, highest authority first.
var Designations = []string{
	models.DesignationAdmin,
	models.DesignationDean,
	models.DesignationHOD,
	models.DesignationHODAssistant,
	models.DesignationAssociateProf,
	models.DesignationAssistantProf,
	models.DesignationFaculty,
	models.DesignationLabAssistant,
	models.DesignationOthers,
	models.DesignationUnassigned,
}

// GetUsers is the administrative listing ordered by authority.
func (s *ScheduleService) GetUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.store.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("err getting users from store: %w", err)
	}
	schedule.SortUsersByRank(users, schedule.AuthorityRank)
	return users, nil
}

// DepartmentMembers lists one department ordered by the in-department hierarchy.
func (s *ScheduleService) DepartmentMembers(ctx context.Context, department string) ([]models.User, error) {
	users, err := s.store.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("err getting users from store: %w", err)
	}
	members := make([]models.User, 0, len(users))
	for _, u := range users {
		if strings.EqualFold(u.Department, department) {
			members = append(members, u)
		}
	}
	schedule.SortUsersByRank(members, schedule.DepartmentRank)
	return members, nil
}

func (s *ScheduleService) GetUser(ctx context.Context, uid string) (models.User, error) {
	return s.store.GetUser(ctx, uid)
}

// Register creates an account. New users start without a designation.
func (s *ScheduleService) Register(ctx context.Context, req models.UserRequest) (models.User, error) {
	verr := &schedule.ValidationError{FieldErrors: map[string]string{}}
	user := models.User{UID: s.newID(), Designation: models.DefaultDesignation}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if user.Name == "" {
		verr.FieldErrors["name"] = "name is required"
	}
	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if _, err := mail.ParseAddress(user.Email); err != nil {
		verr.FieldErrors["email"] = "a valid email is required"
	}
	if req.Password == nil || len(*req.Password) < minPasswordLength {
		verr.FieldErrors["password"] = fmt.Sprintf("password must be at least %d characters", minPasswordLength)
	}
	if verr.HasErrors() {
		return models.User{}, verr
	}
	if req.Department != nil {
		user.Department = strings.TrimSpace(*req.Department)
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = strings.TrimSpace(*req.PhoneNumber)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("err hashing password: %w", err)
	}
	user.PasswordHash = string(hash)
	created, err := s.store.CreateUser(ctx, user)
	if err != nil {
		return models.User{}, fmt.Errorf("err creating user: %w", err)
	}
	s.log.Infof("user %s registered", created.UID)
	return created, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords are not told apart.
func (s *ScheduleService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		s.log.Debugf("login for %q failed: %v", email, err)
		return models.User{}, models.ErrInvalidCredentials
	}
	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, models.ErrInvalidCredentials
	}
	return user, nil
}

// UpdateProfile changes the caller's own name, department and phone number.
func (s *ScheduleService) UpdateProfile(ctx context.Context, uid string, req models.UserRequest) (models.User, error) {
	user, err := s.store.GetUser(ctx, uid)
	if err != nil {
		return models.User{}, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return models.User{}, &schedule.ValidationError{FieldErrors: map[string]string{"name": "name is required"}}
		}
		user.Name = name
	}
	if req.Department != nil {
		user.Department = strings.TrimSpace(*req.Department)
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = strings.TrimSpace(*req.PhoneNumber)
	}
	return s.store.UpdateUser(ctx, uid, user)
}

// UpdateDesignation lets privileged users re-rank others. ADMIN and DEAN edit
// anyone; HOD and HOD's Assistant edit their own department only. Nobody can
// assign a designation that outranks their own.
func (s *ScheduleService) UpdateDesignation(ctx context.Context, editorUID, targetUID, designation string) (models.User, error) {
	designation = canonicalDesignation(designation)
	if designation == "" {
		return models.User{}, &schedule.ValidationError{FieldErrors: map[string]string{"designation": "unknown designation"}}
	}
	editor, err := s.store.GetUser(ctx, editorUID)
	if err != nil {
		return models.User{}, fmt.Errorf("err loading editor: %w", err)
	}
	target, err := s.store.GetUser(ctx, targetUID)
	if err != nil {
		return models.User{}, err
	}
	if err = canAssign(editor, target, designation); err != nil {
		return models.User{}, err
	}
	updated, err := s.store.UpdateDesignation(ctx, target.UID, designation)
	if err != nil {
		return models.User{}, fmt.Errorf("err updating designation: %w", err)
	}
	s.log.Infof("designation of %s set to %q by %s", target.UID, designation, editor.UID)
	return updated, nil
}

func canAssign(editor, target models.User, designation string) error {
	hod := schedule.AuthorityRank(models.DesignationHOD)
	if schedule.AuthorityRank(editor.Designation) >= schedule.AuthorityRank(models.DesignationDean) {
		return nil
	}
	ceiling := schedule.DepartmentRank(editor.Designation)
	if ceiling < schedule.DepartmentRank(models.DesignationHODAssistant) {
		return ErrForbidden
	}
	if editor.Department == "" || !strings.EqualFold(editor.Department, target.Department) {
		return ErrForbidden
	}
	// Department editors only manage people below them and cannot hand out
	// institution-wide roles.
	if schedule.DepartmentRank(target.Designation) >= ceiling || schedule.AuthorityRank(target.Designation) >= hod {
		return ErrForbidden
	}
	if schedule.DepartmentRank(designation) >= ceiling || schedule.AuthorityRank(designation) >= hod {
		return ErrForbidden
	}
	return nil
}

func canonicalDesignation(designation string) string {
	designation = strings.TrimSpace(designation)
	for _, d := range Designations {
		if strings.EqualFold(d, designation) {
			return d
		}
	}
	return ""
}
