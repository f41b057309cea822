package vetspire

// GraphQL documents. Selections are limited to the fields the import reads.

const clientFields = `
    id
    givenName
    familyName
    email
    historicalId
    isActive
    primaryLocationId
    notes
    privateNotes
    addresses { id line1 city state postalCode }
    phoneNumbers { id value }`

const patientFields = `
    id
    name
    species
    breed
    color
    sex
    neutered
    historicalId
    birthDate
    isActive
    isDeceased
    client { id givenName familyName email primaryLocationId }`

const immunizationFields = `
    id
    name
    patient { id name }
    location { id name }
    provider { id name }
    date
    dueDate
    administered
    declined
    historical
    lotNumber
    manufacturer
    expiryDate
    isRabies`

const getClientsQuery = `
query GetClients($limit: Int, $offset: Int) {
  clients(limit: $limit, offset: $offset) {` + clientFields + `
  }
}`

const getPatientsQuery = `
query GetPatients($limit: Int, $offset: Int) {
  patients(limit: $limit, offset: $offset) {` + patientFields + `
  }
}`

const getPatientsWithImmunizationsQuery = `
query GetPatientsWithImmunizations($limit: Int, $offset: Int) {
  patients(limit: $limit, offset: $offset) {` + patientFields + `
    immunizations {` + immunizationFields + `
    }
  }
}`

const createClientMutation = `
mutation CreateClient($input: ClientInput!) {
  createClient(input: $input) {` + clientFields + `
  }
}`

const updateClientMutation = `
mutation UpdateClient($id: ID!, $input: ClientInput!) {
  updateClient(id: $id, input: $input) {` + clientFields + `
  }
}`

const createPatientMutation = `
mutation CreatePatient($clientId: ID!, $input: PatientInput!) {
  createPatient(clientId: $clientId, input: $input) {` + patientFields + `
  }
}`

const updatePatientMutation = `
mutation UpdatePatient($id: ID!, $input: PatientInput!) {
  updatePatient(id: $id, input: $input) {` + patientFields + `
  }
}`

const createImmunizationMutation = `
mutation CreateImmunization($input: ImmunizationInput!) {
  createImmunization(input: $input) {` + immunizationFields + `
  }
}`
